package power

import (
	"context"
	"fmt"
	"time"

	"pitlane/pkg/protocol"
	"pitlane/pkg/transport"
)

// UploadProfiles programs all six slots' throttle curves: 6 blocks per
// slot, 36 writes total, paced by the inter-write delay so the link is not
// overwhelmed. Writes are strictly sequential; the first failed write or a
// cancelled ctx aborts the upload.
func UploadProfiles(ctx context.Context, tr transport.Transport, curves [protocol.NumSlots][]byte) error {
	timer := time.NewTimer(interWriteDelay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	first := true
	for slot := 1; slot <= protocol.NumSlots; slot++ {
		char, err := protocol.ThrottleProfileCharacteristic(slot)
		if err != nil {
			return err
		}
		for block := 0; block < protocol.BlocksPerSlot; block++ {
			if !first {
				timer.Reset(interWriteDelay)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-timer.C:
				}
			}
			first = false

			payload, err := protocol.BuildThrottleProfileBlock(curves[slot-1], block)
			if err != nil {
				return fmt.Errorf("slot %d block %d: %w", slot, block, err)
			}
			if err := tr.WriteCharacteristic(char, payload[:]); err != nil {
				return fmt.Errorf("slot %d block %d: %w", slot, block, err)
			}
		}
	}
	return nil
}
