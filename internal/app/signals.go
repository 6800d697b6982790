package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/five82/dictate/internal/bus"
)

// busSignals lets a desktop hotkey daemon or tray helper drive the client
// with `pkill -USR1 dictate`.
var busSignals = map[os.Signal]string{
	syscall.SIGUSR1: bus.TrayToggleRecord,
	syscall.SIGUSR2: bus.ShowSettings,
}

// relayBusSignals publishes the bus event mapped to each signal received
// until ctx ends or the returned stop is called.
func relayBusSignals(ctx context.Context, b *bus.Bus, log zerolog.Logger) func() {
	ch := make(chan os.Signal, 4)
	sigs := make([]os.Signal, 0, len(busSignals))
	for sig := range busSignals {
		sigs = append(sigs, sig)
	}
	signal.Notify(ch, sigs...)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		relay(ctx, ch, b, log)
	}()
	return func() {
		signal.Stop(ch)
		cancel()
		<-done
	}
}

func relay(ctx context.Context, ch <-chan os.Signal, b *bus.Bus, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			name, ok := busSignals[sig]
			if !ok {
				continue
			}
			if _, err := b.Publish(name); err != nil {
				log.Warn().Err(err).Str("signal", sig.String()).Msg("relay signal")
				continue
			}
			log.Debug().Str("signal", sig.String()).Str("event", name).Msg("relayed signal")
		}
	}
}
