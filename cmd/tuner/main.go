package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/tuner/internal/adapters/player"
	"github.com/ewilliams-labs/tuner/internal/adapters/radio"
	"github.com/ewilliams-labs/tuner/internal/adapters/sqlite"
	"github.com/ewilliams-labs/tuner/internal/config"
	"github.com/ewilliams-labs/tuner/internal/core/domain"
	"github.com/ewilliams-labs/tuner/internal/core/ports"
	"github.com/ewilliams-labs/tuner/internal/core/services"
	"github.com/ewilliams-labs/tuner/internal/dispatch"
)

func main() {
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// -- Settings store
	store, err := sqlite.NewStore(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	defer store.Close()

	// -- Device identity (generated once, then sticky)
	deviceID, ok := store.Get("deviceId")
	if !ok || deviceID == "" {
		deviceID = uuid.NewString()
		store.Set("deviceId", deviceID)
		if err := store.Save(); err != nil {
			log.Fatalf("FATAL: Failed to persist device id: %v", err)
		}
		log.Printf("generated device id %s", deviceID)
	}

	session := domain.NewSession(deviceID)
	cfg.Limits.Apply(session)
	if v, _ := store.Get("isAssociated"); v == "true" {
		session.IsAssociated = true
	}

	// -- Dispatch loop: everything that touches the session runs here
	loop := dispatch.New(64)
	loop.Start()
	defer loop.Stop()
	exec := loop.Post

	ui := &consoleUI{}
	dialogs := &consoleDialogs{exec: exec}
	probe := newDialProbe(cfg.Service.Host)

	// -- Service client and media player
	httpClient := &http.Client{Timeout: cfg.Service.Timeout()}
	client := radio.NewClient(httpClient, cfg.Service.Host, cfg.Service.AppPath, session, probe, ui, dialogs, exec)
	completer := radio.NewCompleter(httpClient, session)
	mediaPlayer := player.New(&http.Client{}, exec)

	// -- Core services
	queue := services.NewQueue()
	history := services.NewHistory(store)
	stations := services.NewStations(client, session, store, queue, ui, dialogs)
	controller := services.NewController(session, client, stations, queue, history, mediaPlayer, dialogs, ui, store)
	controller.SetQAMode(cfg.QAMode)
	client.SetFatalHandler(controller.FailedPlayback)

	loop.Post(func() { bootstrap(client, controller, session) })

	go readCommands(loop, controller, stations, completer)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down...")
	mediaPlayer.Stop()
}

// bootstrap logs in and starts playback, walking through device activation
// when this device has never been linked to an account.
func bootstrap(client *radio.Client, controller *services.Controller, session *domain.Session) {
	controller.Login(func(err error) {
		if err == nil {
			controller.StartPlayback()
			return
		}
		if session.IsAssociated {
			log.Printf("ERROR %d, %s", ports.ErrorCode(err), err)
			return
		}
		controller.Activate(func(code string, err error) {
			if err != nil {
				log.Printf("ERROR %d, %s", ports.ErrorCode(err), err)
				return
			}
			fmt.Printf("\nThis device is not linked to an account yet.\n")
			fmt.Printf("Visit the activation page and enter the code: %s\n", code)
			fmt.Printf("Then press enter here to continue.\n")
			_, _ = fmt.Scanln()
			controller.Associate(func(err error) {
				if err != nil {
					log.Printf("ERROR %d, %s", ports.ErrorCode(err), err)
					return
				}
				controller.Login(func(err error) {
					if err != nil {
						log.Printf("ERROR %d, %s", ports.ErrorCode(err), err)
						return
					}
					controller.StartPlayback()
				})
			})
		})
	})
}

// readCommands turns stdin lines into controller actions on the loop.
func readCommands(loop *dispatch.Loop, controller *services.Controller, stations *services.Stations, completer *radio.Completer) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "n", "next":
			loop.Post(func() { controller.SkipSong() })
		case "p", "pause":
			loop.Post(func() { controller.TogglePause() })
		case "+":
			loop.Post(func() { controller.AddFeedback(1) })
		case "-":
			loop.Post(func() { controller.AddFeedback(-1) })
		case "b", "bookmark":
			loop.Post(func() {
				controller.Bookmark("song", func(err error) {
					if err != nil {
						log.Printf("ERROR %v", err)
						return
					}
					fmt.Println("bookmarked")
				})
			})
		case "e", "explain":
			loop.Post(func() {
				controller.ExplainTrack(func(traits []string, err error) {
					if err != nil {
						log.Printf("ERROR %v", err)
						return
					}
					fmt.Printf("because you like: %s\n", strings.Join(traits, ", "))
				})
			})
		case "s", "search":
			query := arg
			loop.Post(func() {
				controller.Search(query, func(results []ports.SearchResult, err error) {
					if err != nil {
						log.Printf("ERROR %v", err)
						return
					}
					for _, r := range results {
						fmt.Printf("  [%s] %s (%s)\n", r.Kind, r.Label, r.Token)
					}
				})
			})
		case "a", "auto":
			query := arg
			loop.Post(func() {
				results, err := completer.Complete(context.Background(), query)
				if err != nil {
					log.Printf("WARN autocomplete: %v", err)
					return
				}
				for _, r := range results {
					fmt.Printf("  %s (%s)\n", r.Label, r.Token)
				}
			})
		case "c", "change":
			token := arg
			loop.Post(func() {
				if err := controller.ChangeStation(token); err != nil {
					log.Printf("ERROR %v", err)
				}
			})
		case "stations":
			loop.Post(func() {
				for _, st := range stations.All() {
					marker := " "
					if st.Token == stations.CurrentToken() {
						marker = "*"
					}
					fmt.Printf("%s %s (%s)\n", marker, st.Name, st.Token)
				}
			})
		case "q", "quit":
			p, _ := os.FindProcess(os.Getpid())
			_ = p.Signal(os.Interrupt)
			return
		default:
			fmt.Println("commands: n(ext) p(ause) + - b(ookmark) e(xplain) s(earch) <q> a(uto) <q> c(hange) <token> stations q(uit)")
		}
	}
}

// dialProbe checks connectivity with a short TCP dial to the service host.
type dialProbe struct {
	addr string
}

func newDialProbe(serviceURL string) *dialProbe {
	addr := "example.com:443"
	if u, err := url.Parse(serviceURL); err == nil && u.Host != "" {
		addr = u.Host
		if u.Port() == "" {
			if u.Scheme == "http" {
				addr += ":80"
			} else {
				addr += ":443"
			}
		}
	}
	return &dialProbe{addr: addr}
}

func (p *dialProbe) Online() bool {
	conn, err := net.DialTimeout("tcp", p.addr, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// consoleUI renders display updates as log lines.
type consoleUI struct{}

func (u *consoleUI) PopulateStations(stations []domain.Station, currentToken string) {
	log.Printf("station list updated (%d stations)", len(stations))
}

func (u *consoleUI) NowPlaying(track *domain.NormalizedTrack, stationName string) {
	if track == nil {
		fmt.Println("-- nothing playing --")
		return
	}
	if track.IsAd {
		fmt.Printf("♪ [ad] %s (%s)\n", track.Title, track.Company)
		return
	}
	fmt.Printf("♪ %s by %s on %s [%s]\n", track.Title, track.Artist, track.Album, stationName)
}

func (u *consoleUI) History(entries []domain.HistoryEntry) {}

func (u *consoleUI) Loading(visible bool) {}

// consoleDialogs prints modal messages and immediately confirms them; a
// terminal has no real modal to wait on.
type consoleDialogs struct {
	exec func(func())
}

func (d *consoleDialogs) OK(message string, done func()) {
	fmt.Printf("\n[!] %s\n", message)
	if done != nil {
		d.exec(done)
	}
}

func (d *consoleDialogs) Confirm(title, message string, yes, no func()) {
	fmt.Printf("\n[?] %s: %s (auto-confirming)\n", title, message)
	if yes != nil {
		d.exec(yes)
	}
}

func (d *consoleDialogs) Keyboard(message, initial string, submit func(text string), cancel func()) {
	fmt.Printf("\n[kbd] %s\n> ", message)
	reader := bufio.NewReader(os.Stdin)
	text, err := reader.ReadString('\n')
	if err != nil {
		if cancel != nil {
			d.exec(cancel)
		}
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = initial
	}
	if submit != nil {
		d.exec(func() { submit(text) })
	}
}
