// Package config provides the configuration types and loader of grpcbind
// servers and clients.
//
// Usage:
//
//	import "github.com/Goden-Gun/grpcbind/pkg/config"
//
//	cfg := &config.Config{}
//	if err := config.LoadConfig(cfg, config.LoadOptions{EnvPrefix: "GRPCBIND"}); err != nil {
//	    return err
//	}
//	srv := server.New(cfg.Server)
//
// LoadConfig reads configs/config_<APP_ENV>.yaml, applies environment
// overrides and then calls ApplyDefaults when the target implements Defaulter.
package config
