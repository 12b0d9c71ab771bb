// Package bootstrap wires a loaded config.Config into running components.
//
// Example usage:
//
//	func main() {
//	    ctx := context.Background()
//	    cfg := &config.Config{}
//	    if err := config.LoadConfig(cfg); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    if err := bootstrap.InitLogger(cfg.Log, cfg.App.Name); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    shutdown, err := bootstrap.InitTracing(ctx, cfg.Tracing)
//	    if err != nil {
//	        log.Warn(err)
//	    }
//	    defer shutdown(ctx)
//
//	    srv, err := bootstrap.InitServer(ctx, cfg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    srv.RegisterService(&pb.Echo_ServiceDesc, impl)
//	    if err := srv.BindConfigured(); err != nil {
//	        log.Fatal(err)
//	    }
//	    go srv.Serve()
//	    defer srv.ShutdownWithTimeout()
//	}
package bootstrap
