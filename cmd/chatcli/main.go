// Command chatcli, PWAChat feed'ini terminalde gösteren istemci.
//
//	chatcli --server http://localhost:9090 --profile alice
//	chatcli --server https://chat.example --token $JWT --follow
//
// --follow ile realtime aboneliği açılır; stdin'den okunan her satır
// mesaj olarak gönderilir. "/older" daha eski bir sayfa yükler,
// "/away" ve "/back" görünürlüğü değiştirir.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/client"
)

type options struct {
	server   string
	profile  string
	token    string
	pageSize int
	width    int
	follow   bool
	verbose  bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "chatcli: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "chatcli: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	var o options
	fs := pflag.NewFlagSet("chatcli", pflag.ContinueOnError)
	fs.StringVar(&o.server, "server", "http://localhost:9090", "server base URL")
	fs.StringVar(&o.profile, "profile", "", "participant id (header identity mode)")
	fs.StringVar(&o.token, "token", "", "identity token (token identity mode)")
	fs.IntVar(&o.pageSize, "page-size", 20, "messages per page")
	fs.IntVar(&o.width, "width", 72, "render width")
	fs.BoolVarP(&o.follow, "follow", "f", false, "stay connected and read messages from stdin")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log realtime activity to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.profile == "" && o.token == "" {
		return nil, errors.New("one of --profile or --token is required")
	}
	return &o, nil
}

func run(ctx context.Context, o *options) error {
	log := zap.NewNop().Sugar()
	if o.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		log = logger.Sugar().Named("chatcli")
	}

	apiOpts := []client.Option{client.WithProfileID(o.profile)}
	if o.token != "" {
		apiOpts = []client.Option{client.WithToken(o.token)}
	}
	api, err := client.NewAPI(o.server, apiOpts...)
	if err != nil {
		return err
	}

	viewer := o.profile
	if o.token != "" {
		me, err := api.Me(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve identity: %w", err)
		}
		viewer = me.ID
	}

	session := client.NewSession(api, viewer, o.pageSize, log)
	if err := session.Start(ctx); err != nil {
		return err
	}

	t := defaultTheme()
	var outMu sync.Mutex
	draw := func() {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Print("\033[H\033[2J")
		fmt.Print(render(session.Snapshot(), t, o.width))
	}

	if !o.follow {
		fmt.Print(render(session.Snapshot(), t, o.width))
		return nil
	}

	session.OnChange(draw)
	draw()

	rt := client.NewRealtime(api.WebsocketURL(), log)
	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx, rt) }()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case err := <-runErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			handleInput(ctx, session, strings.TrimSpace(line))
		}
	}
}

func handleInput(ctx context.Context, s *client.Session, line string) {
	var err error
	switch line {
	case "":
		return
	case "/older":
		_, err = s.LoadOlder(ctx)
	case "/away":
		s.SetVisible(ctx, false)
	case "/back":
		s.SetVisible(ctx, true)
	default:
		_, err = s.Send(ctx, line)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}
