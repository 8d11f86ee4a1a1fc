package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/valentine/internal/app"
	"github.com/ayusman/valentine/internal/capture"
	"github.com/ayusman/valentine/internal/config"
	"github.com/ayusman/valentine/internal/detector"
	"github.com/ayusman/valentine/internal/gesture"
	"github.com/ayusman/valentine/internal/server"
	"github.com/ayusman/valentine/internal/store"
	"github.com/ayusman/valentine/internal/story"
	"github.com/ayusman/valentine/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: $VALENTINE_CONFIG, ~/.valentine/config.toml, ./valentine.toml)")
	writeScript := flag.String("write-script", "", "write the built-in narrative script to this path and exit")
	flag.Parse()

	fmt.Println("Valentine - gesture-driven narrative")

	if *writeScript != "" {
		if err := config.WriteScript(story.DefaultScript(), *writeScript); err != nil {
			log.Fatalf("Failed to write script: %v", err)
		}
		fmt.Printf("Wrote script template to %s\n", *writeScript)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	script, err := config.LoadScript(cfg.Story.Script)
	if err != nil {
		log.Fatalf("Failed to load script: %v", err)
	}

	var st *store.Store
	if cfg.Store.Path != "" {
		if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer st.Close()
	}

	controller := story.New(
		story.WithScript(script),
		story.WithDelays(cfg.Delays()),
	)

	appCfg := app.Config{
		Controller: controller,
		Store:      st,
		FPS:        cfg.Camera.FPS,
	}
	if cfg.Camera.Enabled {
		appCfg.Camera = capture.NewCamera(cfg.CameraSettings())
		appCfg.Detector = newDetector(cfg.DetectorConfig())
	}

	a, err := app.New(appCfg)
	if err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer a.Close()

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       a,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		// A missing camera should not take the page down.
		if err := a.Run(ctx); err != nil {
			log.Printf("Frame loop stopped: %v", err)
		}
		return nil
	})
	if cfg.Story.Script != "" {
		g.Go(func() error {
			err := config.WatchScript(ctx, cfg.Story.Script, func(s story.Script) {
				if err := controller.SetScript(s); err != nil {
					log.Printf("Script rejected: %v", err)
				}
			})
			if err != nil {
				log.Printf("Script watcher stopped: %v", err)
			}
			return nil
		})
	}

	if cfg.Tray {
		runTray(ctx, stop, a, pageURL(cfg.Server.Addr))
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Goodbye")
}

// newDetector prefers the MediaPipe service and falls back to a detector that
// never sees a hand, which keeps the camera preview and the HTTP API usable.
func newDetector(cfg detector.Config) detector.Detector {
	mp, err := detector.NewMediaPipeDetector(cfg)
	if err != nil {
		log.Printf("MediaPipe not available (%v), camera gestures disabled", err)
		return detector.NewMockDetector()
	}
	log.Println("Using MediaPipe hand detection")
	return mp
}

// runTray shows the tray on the main goroutine until the user quits or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, a *app.App, url string) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnRestart(a.Reset)
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	})
	t.OnQuit(stop)

	a.Controller().OnChange(func(ev story.Event) {
		t.SetStage(ev.Snapshot.Stage.String())
	})
	a.WatchGestures(func(g gesture.Gesture) {
		t.SetLastGesture(g.String())
	})

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

// pageURL turns a listen address into a URL a local browser can open.
func pageURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.valentine/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".valentine", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
