package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/recruitgenius/backend/config"
	"github.com/recruitgenius/backend/internal/storage"
)

const usage = `usage: storage-admin <command> [flags]

commands:
  check                         create the recordings and resumes buckets if missing
  clear -bucket B [-prefix P]   remove every object under P in bucket B
`

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage init error: %v\n", err)
		os.Exit(1)
	}
	code := run(ctx, os.Args[1:], store, []string{cfg.BucketRecordings, cfg.BucketResumes}, os.Stdout, os.Stderr)
	_ = store.Close()
	os.Exit(code)
}

func run(ctx context.Context, args []string, store storage.ObjectStore, buckets []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch args[0] {
	case "check":
		err := storage.EnsureBuckets(ctx, store, buckets, func(b string, created bool) {
			state := "exists"
			if created {
				state = "created"
			}
			fmt.Fprintf(stdout, "%s: %s\n", b, state)
		})
		if err != nil {
			fmt.Fprintf(stderr, "check failed: %v\n", err)
			return 1
		}
		return 0

	case "clear":
		fs := flag.NewFlagSet("clear", flag.ContinueOnError)
		fs.SetOutput(stderr)
		bucket := fs.String("bucket", "", "bucket to clear")
		prefix := fs.String("prefix", "", "only remove objects under this prefix")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *bucket == "" {
			fmt.Fprintln(stderr, "clear: -bucket is required")
			return 2
		}

		removed, failed, err := storage.Clear(ctx, store, *bucket, *prefix, func(obj string, err error) {
			if err != nil {
				fmt.Fprintf(stdout, "FAIL %s: %v\n", obj, err)
				return
			}
			fmt.Fprintf(stdout, "ok   %s\n", obj)
		})
		fmt.Fprintf(stdout, "removed %d, failed %d\n", removed, failed)
		if err != nil {
			fmt.Fprintf(stderr, "clear failed: %v\n", err)
			return 1
		}
		if failed > 0 {
			return 1
		}
		return 0

	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}
