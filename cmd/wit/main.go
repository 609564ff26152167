package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/chenshaoyu1995/wit-unity/internal/audio"
	"github.com/chenshaoyu1995/wit-unity/internal/config"
	"github.com/chenshaoyu1995/wit-unity/internal/logging"
	"github.com/chenshaoyu1995/wit-unity/internal/wit"
)

const usage = `usage: wit [flags] <command> [args]

commands:
  message <text>          classify a text utterance
  speech <file>           stream a .wav or raw PCM file to /speech
  entities                list the app entities (server token)
  entity <name>           show one entity (server token)
  apps                    list apps (server token)
  app <id>                show one app (server token)
  request <path> [k=v...] send a request to any path
  tone <file> [hz] [sec]  write a test tone as a 16 kHz mono .wav

flags:
`

type options struct {
	configPath string
	raw        bool
	realtime   bool
	rate       int
	channels   int
	limit      int
	offset     int
	params     paramList
}

// paramList collects repeated -param key=value flags.
type paramList []wit.QueryParam

func (p *paramList) String() string {
	parts := make([]string, 0, len(*p))
	for _, param := range *p {
		parts = append(parts, param.Key+"="+param.Value)
	}
	return strings.Join(parts, "&")
}

func (p *paramList) Set(value string) error {
	param, err := parseParam(value)
	if err != nil {
		return err
	}
	*p = append(*p, param)
	return nil
}

func parseParam(value string) (wit.QueryParam, error) {
	key, val, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return wit.QueryParam{}, fmt.Errorf("expected key=value, got %q", value)
	}
	return wit.QueryParam{Key: key, Value: val}, nil
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.configPath, "config", config.DefaultPath, "Config file (JSON or YAML)")
	flag.BoolVar(&opts.raw, "raw", false, "Print the response body as received")
	flag.BoolVar(&opts.realtime, "realtime", false, "Pace speech upload like a live microphone")
	flag.IntVar(&opts.rate, "rate", 0, "Sample rate of raw PCM input (default from config)")
	flag.IntVar(&opts.channels, "channels", 0, "Channels of raw PCM input (default from config)")
	flag.IntVar(&opts.limit, "limit", 100, "Page size for apps")
	flag.IntVar(&opts.offset, "offset", 0, "Page offset for apps")
	flag.Var(&opts.params, "param", "Extra query parameter key=value (repeatable)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	logging.SetService("wit")
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, opts, flag.Args()); err != nil {
		logging.Errorf("%v", err)
		logging.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, opts options, args []string) error {
	command, rest := args[0], args[1:]
	if command == "tone" {
		return writeTone(rest)
	}

	client := wit.NewClient(cfg.Wit,
		wit.WithBaseURL(cfg.Wit.BaseURL),
		wit.WithHTTPClient(wit.NewHTTPClient(cfg.Timeout())),
	)

	session, err := newSession(client, command, rest, opts)
	if err != nil {
		return err
	}
	if err := cfg.ValidateKeys(!session.Kind().Privileged(), session.Kind().Privileged()); err != nil {
		return err
	}

	if command == "speech" {
		if err := attachAudio(ctx, session, cfg, opts, rest[0]); err != nil {
			return err
		}
	}
	if opts.raw {
		session.OnRawResponse(func(body string) {
			fmt.Println(body)
		})
	}

	result, err := client.Do(ctx, session)
	if err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("%s %s failed: %d %s", session.Kind(), session.Path(), result.StatusCode, result.Description)
	}
	if !opts.raw {
		return printNode(result.Payload)
	}
	return nil
}

func newSession(client *wit.Client, command string, args []string, opts options) (*wit.Session, error) {
	need := func(n int, what string) error {
		if len(args) < n {
			return fmt.Errorf("%s requires %s", command, what)
		}
		return nil
	}

	switch command {
	case "message":
		if err := need(1, "the text to classify"); err != nil {
			return nil, err
		}
		return client.MessageRequest(strings.Join(args, " "), opts.params...), nil
	case "speech":
		if err := need(1, "an audio file"); err != nil {
			return nil, err
		}
		return client.SpeechRequest(opts.params...), nil
	case "entities":
		return client.EntitiesRequest(), nil
	case "entity":
		if err := need(1, "an entity name"); err != nil {
			return nil, err
		}
		return client.EntityRequest(args[0]), nil
	case "apps":
		return client.AppsRequest(opts.limit, opts.offset), nil
	case "app":
		if err := need(1, "an app id"); err != nil {
			return nil, err
		}
		return client.AppRequest(args[0]), nil
	case "request":
		if err := need(1, "a path"); err != nil {
			return nil, err
		}
		params := append([]wit.QueryParam{}, opts.params...)
		for _, arg := range args[1:] {
			param, err := parseParam(arg)
			if err != nil {
				return nil, err
			}
			params = append(params, param)
		}
		return client.Request(args[0], params...), nil
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func attachAudio(ctx context.Context, session *wit.Session, cfg *config.AppConfig, opts options, path string) error {
	raw := audio.Format{SampleRate: cfg.Audio.InputSampleRate, Channels: cfg.Audio.InputChannels}
	if opts.rate > 0 {
		raw.SampleRate = opts.rate
	}
	if opts.channels > 0 {
		raw.Channels = opts.channels
	}

	source, err := audio.OpenSource(path, raw)
	if err != nil {
		return err
	}
	logging.Infof("streaming %s (%d Hz, %d ch)", path, source.Input.SampleRate, source.Input.Channels)

	session.OnInputReady(func(s *wit.Session) {
		n, err := audio.Pump(ctx, s, source, cfg.Audio.ChunkBytes, opts.realtime)
		if err != nil && !wit.IsStreamError(err) {
			logging.Warnf("audio upload stopped after %d bytes: %v", n, err)
		}
		_ = s.CloseRequestStream()
		logging.Debugf("uploaded %d bytes", n)
	})
	session.OnResponse(func(s *wit.Session) {
		_ = source.Close()
	})
	return nil
}

func printNode(node *wit.Node) error {
	if node == nil {
		return nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, node.Raw(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(os.Stdout)
	return err
}

func writeTone(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("tone requires an output file")
	}
	freq, seconds := 440.0, 2.0
	if len(args) > 1 {
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid frequency %q: %w", args[1], err)
		}
		freq = value
	}
	if len(args) > 2 {
		value, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", args[2], err)
		}
		seconds = value
	}

	data := audio.ToneWAV(audio.SpeechFormat, freq, time.Duration(seconds*float64(time.Second)))
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return err
	}
	logging.Infof("wrote %s (%.0f Hz, %.1f s)", args[0], freq, seconds)
	return nil
}
