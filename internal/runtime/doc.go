// Package runtime wires the command log store and the optional eviction
// archive into one explicitly owned object. Servers receive the Runtime and
// never reach for package-level state.
//
// Example:
//
//	cfg := config.Default()
//	cfg.ArchiveEnabled = true
//	rt, err := runtime.Open(runtime.Options{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//	_, _ = rt.Store().Write(ctx, []byte("ls -la\n"))
package runtime
