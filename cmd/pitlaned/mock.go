package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"time"

	"pitlane/pkg/protocol"
)

const (
	mockTickInterval  = 50 * time.Millisecond
	mockThrottleEvery = 4 // throttle frame every N ticks
	centisPerTick     = uint32(mockTickInterval / (10 * time.Millisecond))
)

func runMock(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("mock", flag.ContinueOnError)
	fs.SetOutput(stderr)

	addr := fs.String("addr", "127.0.0.1:7420", "listen address")
	cars := fs.Int("cars", 3, "number of cars on track (1-6)")
	pace := fs.Duration("pace", 5*time.Second, "base lap time")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *cars < 1 || *cars > protocol.NumSlots {
		fmt.Fprintln(stderr, "cars must be 1..6")
		return 2
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintln(stderr, "listen:", err)
		return 1
	}
	defer ln.Close()
	fmt.Fprintln(stderr, "mock powerbase on", ln.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return 0
			}
			fmt.Fprintln(stderr, "accept:", err)
			continue
		}
		go serveMockConn(ctx, conn, *cars, *pace)
	}
}

func serveMockConn(ctx context.Context, conn net.Conn, cars int, pace time.Duration) {
	defer conn.Close()

	// Drain heartbeat and profile writes from the host.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	paceCentis := uint32(pace / (10 * time.Millisecond))
	grid := newMockGrid(cars, paceCentis)

	ticker := time.NewTicker(mockTickInterval)
	defer ticker.Stop()

	var now uint32
	var tick int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now += centisPerTick
			tick++
			for _, car := range grid {
				frame, crossed := car.advance(now)
				if !crossed {
					continue
				}
				if err := writeMockRecord(conn, protocol.CharSlot, frame); err != nil {
					return
				}
			}
			if tick%mockThrottleEvery == 0 {
				if err := writeMockRecord(conn, protocol.CharThrottle, mockThrottleFrame(tick, cars)); err != nil {
					return
				}
			}
		}
	}
}

func writeMockRecord(conn net.Conn, c protocol.Characteristic, payload []byte) error {
	record := append([]byte{byte(c)}, payload...)
	frame := append(protocol.CobsEncode(record), 0x00)
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err := conn.Write(frame)
	return err
}

// mockCar simulates one car crossing the finish line on alternating lanes
// with a slot-specific lap period and a small deterministic jitter.
type mockCar struct {
	slot   byte
	period uint32 // centiseconds
	lane   int
	t1, t2 uint32
	nextAt uint32
	laps   int64
}

func newMockGrid(cars int, paceCentis uint32) []*mockCar {
	if paceCentis < 100 {
		paceCentis = 100
	}
	grid := make([]*mockCar, cars)
	for i := range grid {
		grid[i] = &mockCar{
			slot:   byte(i + 1),
			period: paceCentis + uint32(i)*37,
			lane:   2, // first crossing lands on lane 1
			nextAt: paceCentis / 2,
		}
	}
	return grid
}

// advance emits a slot notification if the car crossed by time now.
func (c *mockCar) advance(now uint32) ([]byte, bool) {
	if now < c.nextAt {
		return nil, false
	}

	crossing := c.nextAt
	if c.lane == 1 {
		c.lane = 2
		c.t2 = crossing
	} else {
		c.lane = 1
		c.t1 = crossing
	}
	c.laps++
	c.nextAt += c.period + uint32(c.laps*13%29)

	frame := make([]byte, protocol.SlotNotificationSize)
	frame[1] = c.slot
	binary.LittleEndian.PutUint32(frame[2:6], c.t1)
	binary.LittleEndian.PutUint32(frame[6:10], c.t2)
	binary.LittleEndian.PutUint32(frame[10:14], c.t1+20)
	binary.LittleEndian.PutUint32(frame[14:18], c.t2+20)
	return frame, true
}

// mockThrottleFrame fabricates controller input: a sawtooth throttle per
// controller with occasional brake and lane-change bits.
func mockThrottleFrame(tick int64, cars int) []byte {
	frame := make([]byte, 1+cars)
	for i := 0; i < cars; i++ {
		throttle := byte((tick*3 + int64(i)*11) % 64)
		b := throttle & 0x3F
		if (tick+int64(i))%17 == 0 {
			b |= 0x40
		}
		if (tick+int64(i))%23 == 0 {
			b |= 0x80
		}
		frame[1+i] = b
	}
	return frame
}
