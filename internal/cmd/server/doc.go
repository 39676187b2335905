// Package serverrun exposes the Run entrypoint the CLI uses to start cmdlog:
// the TCP command log server plus the stamper and the optional admin
// surfaces, with ordered shutdown.
//
// Example:
//
//	cfg := config.Default()
//	cfg.HTTPAddr = ":8080"
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{Config: cfg})
package serverrun
