package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   ops gRPC bind address
//	-d string   database DSN
//	-r string   Redis URL
//	-t int      session lifetime, minutes
//	-o string   upstream API origin
//	-s string   OAuth state signing secret
//	-l string   log level
//
// Only these flags are taken from os.Args (see flagx.FilterArgs), so -c and
// -env handled by the other loaders do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-r", "-t", "-o", "-s", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run the HTTP server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "address and port to run the ops gRPC server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL")
	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session lifetime (in minutes)")
	fs.StringVar(&config.APIOrigin, "o", config.APIOrigin, "upstream API origin")
	fs.StringVar(&config.StateSecret, "s", config.StateSecret, "OAuth state signing secret")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Minutes are coarser than the other layers, so only apply -t when given.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		}
	})
}
