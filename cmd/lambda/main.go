package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multicodec"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	config "github.com/ipfs/go-ipld-lambda/cmd/lambda/internal"
	"github.com/ipfs/go-ipld-lambda/lambda"
	"github.com/ipfs/go-ipld-lambda/predicate"
	"github.com/ipfs/go-ipld-lambda/remote/server"
	"github.com/ipfs/go-ipld-lambda/stdlib"
	"github.com/ipfs/go-ipld-lambda/store"
	"github.com/ipfs/go-ipld-lambda/term"
)

var log = logging.Logger("lambda/cmd")

func loadConfig(configFile string) (config.Config, error) {
	if configFile != "" {
		f, err := os.Open(configFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("opening config file: %w", err)
		}
		defer f.Close()
		return config.ReadConfig(f)
	}
	return config.DefaultConfig, nil
}

// codecFlag returns the codec named by flag, or the config default when the
// flag is not set.
func codecFlag(clictx *cli.Context, flag string, cfg config.Config) (multicodec.Code, error) {
	name := cfg.Codec
	if clictx.IsSet(flag) {
		name = clictx.String(flag)
	}
	return term.ParseCodec(name)
}

func readTerm(path string, c multicodec.Code) (term.Term, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := term.Unmarshal(b, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func formatCid(k cid.Cid, base string) (string, error) {
	enc, err := multibase.EncoderByName(base)
	if err != nil {
		return "", err
	}
	return k.StringOfBase(enc.Encoding())
}

func evalFiles(ctx context.Context, cfg config.Config, c multicodec.Code, paths []string) ([][]byte, error) {
	ev, err := lambda.New(stdlib.Set(), cfg.EvaluatorOptions()...)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			t, err := readTerm(path, c)
			if err != nil {
				return err
			}
			v, err := ev.EvaluateTerm(ctx, t)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			b, err := term.MarshalValue(v, multicodec.DagJson)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	ev, err := lambda.New(stdlib.Set(), cfg.EvaluatorOptions()...)
	if err != nil {
		return err
	}
	ds, err := openDatastore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ds.Close(); err != nil {
			log.Errorw("closing datastore", "Error", err)
		}
	}()
	st := store.New(ds)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", server.Handler(ev, server.WithStore(st), server.WithMaxBodySize(cfg.MaxBodySize)))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infow("listening", "Addr", cfg.Listen, "Datastore", cfg.Datastore,
			"MaxBodySize", humanize.Bytes(uint64(cfg.MaxBodySize)))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:  "lambda",
		Usage: "evaluate content addressed lambda terms",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "a JSON config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level of the lambda loggers",
				Value: "info",
			},
		},
		Before: func(clictx *cli.Context) error {
			return logging.SetLogLevelRegex("lambda/.*", clictx.String("log-level"))
		},
		Commands: []*cli.Command{
			{
				Name:      "eval",
				Usage:     "evaluates term files against the standard predicates",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "codec",
						Usage: "codec of the files, dag-json or dag-cbor",
					},
				},
				Action: func(clictx *cli.Context) error {
					if clictx.NArg() == 0 {
						return errors.New("no term files given")
					}
					cfg, err := loadConfig(clictx.String("config"))
					if err != nil {
						return err
					}
					c, err := codecFlag(clictx, "codec", cfg)
					if err != nil {
						return err
					}

					results, err := evalFiles(clictx.Context, cfg, c, clictx.Args().Slice())
					if err != nil {
						return err
					}
					for _, r := range results {
						fmt.Fprintln(clictx.App.Writer, string(r))
					}
					return nil
				},
			},
			{
				Name:      "cid",
				Usage:     "prints the CID of a term",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "codec",
						Usage: "codec of the file, dag-json or dag-cbor",
					},
					&cli.StringFlag{
						Name:  "base",
						Usage: "multibase the CID is printed in",
						Value: "base32",
					},
				},
				Action: func(clictx *cli.Context) error {
					if clictx.NArg() != 1 {
						return errors.New("expected exactly one term file")
					}
					cfg, err := loadConfig(clictx.String("config"))
					if err != nil {
						return err
					}
					c, err := codecFlag(clictx, "codec", cfg)
					if err != nil {
						return err
					}
					t, err := readTerm(clictx.Args().First(), c)
					if err != nil {
						return err
					}
					k, err := term.Sum(t)
					if err != nil {
						return err
					}
					s, err := formatCid(k, clictx.String("base"))
					if err != nil {
						return err
					}
					fmt.Fprintln(clictx.App.Writer, s)
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "prints a term in lambda notation",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "codec",
						Usage: "codec of the file, dag-json or dag-cbor",
					},
				},
				Action: func(clictx *cli.Context) error {
					if clictx.NArg() != 1 {
						return errors.New("expected exactly one term file")
					}
					cfg, err := loadConfig(clictx.String("config"))
					if err != nil {
						return err
					}
					c, err := codecFlag(clictx, "codec", cfg)
					if err != nil {
						return err
					}
					t, err := readTerm(clictx.Args().First(), c)
					if err != nil {
						return err
					}
					fmt.Fprintln(clictx.App.Writer, term.String(t))
					return nil
				},
			},
			{
				Name:      "convert",
				Usage:     "re-encodes a term with another codec",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Usage: "codec of the file",
						Value: "dag-json",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "codec to write to stdout",
						Value: "dag-cbor",
					},
				},
				Action: func(clictx *cli.Context) error {
					if clictx.NArg() != 1 {
						return errors.New("expected exactly one term file")
					}
					from, err := term.ParseCodec(clictx.String("from"))
					if err != nil {
						return err
					}
					to, err := term.ParseCodec(clictx.String("to"))
					if err != nil {
						return err
					}
					t, err := readTerm(clictx.Args().First(), from)
					if err != nil {
						return err
					}
					b, err := term.Marshal(t, to)
					if err != nil {
						return err
					}
					_, err = clictx.App.Writer.Write(b)
					return err
				},
			},
			{
				Name:  "predicates",
				Usage: "lists the standard predicates",
				Action: func(clictx *cli.Context) error {
					fmt.Fprintln(clictx.App.Writer, strings.Join(predicate.Names(stdlib.Set()), "\n"))
					return nil
				},
			},
			{
				Name:  "serve",
				Usage: "runs the HTTP evaluation server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "address to listen on, overrides the config",
					},
				},
				Action: func(clictx *cli.Context) error {
					cfg, err := loadConfig(clictx.String("config"))
					if err != nil {
						return err
					}
					if clictx.IsSet("listen") {
						cfg.Listen = clictx.String("listen")
					}
					ctx, stop := signal.NotifyContext(clictx.Context, os.Interrupt)
					defer stop()
					return serve(ctx, cfg)
				},
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
