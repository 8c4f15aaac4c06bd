package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":5000")
//	-d string   PostgreSQL DSN
//	-r string   redis address (host:port)
//	-n int      redis database number
//	-f string   blob root folder
//	-k string   storage backend: local or s3
//	-t int      session validity, hours
//	-q string   thumbnail queue name
//	-w string   worker id
//	-l string   log level
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Arguments are first filtered with flagx.FilterArgs so the -c config flag
// and unknown flags do not break parsing.
func parseFlags(config *Config, osArgs []string) {
	args := flagx.FilterArgs(osArgs, []string{
		"-a", "-d", "-r", "-n", "-f", "-k", "-t", "-q", "-w", "-l",
		"-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.IntVar(&config.RedisDB, "n", config.RedisDB, "redis database")
	fs.StringVar(&config.FolderPath, "f", config.FolderPath, "blob root folder")
	fs.StringVar(&config.StorageBackend, "k", config.StorageBackend, "storage backend (local|s3)")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Hours()), "session validity (in hours)")

	fs.StringVar(&config.QueueName, "q", config.QueueName, "thumbnail queue name")
	fs.StringVar(&config.WorkerID, "w", config.WorkerID, "worker id")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTTL = time.Duration(*sessionTTL) * time.Hour
		}
	})
}
