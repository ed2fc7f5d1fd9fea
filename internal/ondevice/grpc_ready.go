package ondevice

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

// waitForReady connects conn and blocks until it is Ready. A transient
// failure ends the wait so an absent engine is reported without backoff.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure:
			return fmt.Errorf("riva grpc unreachable (%s)", state)
		case connectivity.Shutdown:
			return errors.New("riva grpc connection shut down")
		}

		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("riva grpc not ready in state %s: %w", state, ctx.Err())
		}
	}
}
