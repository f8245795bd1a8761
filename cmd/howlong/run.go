package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/howlong/internal/app"
	"github.com/ayusman/howlong/internal/config"
	"github.com/ayusman/howlong/internal/metrics"
	"github.com/ayusman/howlong/internal/plugin"
	"github.com/ayusman/howlong/internal/server"
	"github.com/ayusman/howlong/internal/session"
	"github.com/ayusman/howlong/internal/store"
	"github.com/ayusman/howlong/internal/tray"
	"github.com/ayusman/howlong/internal/upload"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the kiosk",
	Long:  `Opens the camera, starts the visitor session loop and serves the kiosk UI over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("camera") {
			cfg.Camera.Device, _ = cmd.Flags().GetInt("camera")
		}
		noTray, _ := cmd.Flags().GetBool("no-tray")

		return run(cfg, noTray)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("addr", ":8080", "HTTP listen address")
	runCmd.Flags().Int("camera", 0, "Camera device index")
	runCmd.Flags().Bool("no-tray", false, "Run without the system tray menu")
}

func run(cfg config.Config, noTray bool) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	uploader, err := upload.New(context.Background(), cfg.Upload)
	if err != nil {
		return err
	}
	if !uploader.Enabled() {
		log.Println("Shot upload disabled, keeping shots locally")
	}

	plugins := plugin.NewManager(cfg.Plugins.Dir)
	if err := plugins.Discover(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	} else if n := len(plugins.List()); n > 0 {
		log.Printf("Loaded %d plugins from %s", n, cfg.Plugins.Dir)
	}
	hooks := plugin.NewDispatcher(plugins, plugin.NewExecutor(cfg.Plugins.TimeoutMs))
	defer hooks.Close()

	m := metrics.New()
	hub := server.NewStateHub(server.DefaultStateInterval)
	defer hub.Close()

	kiosk := app.New(app.Config{
		Camera:       cfg.Camera,
		Presence:     cfg.Presence,
		Detector:     cfg.Detector,
		Session:      cfg.Session,
		RenderFPS:    cfg.RenderFPS,
		ShotsDir:     cfg.ShotsDir,
		RestartAfter: cfg.RestartAfter,
		Store:        st,
		Uploader:     uploader,
		Metrics:      m,
		Publisher:    hub,
		Observers:    []session.Observer{hooks},
	})

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Printf("Serving static files from: %s", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		SharePage: cfg.Server.SharePage,
		Store:     st,
		Frames:    kiosk,
		States:    hub,
		Control:   kiosk,
		Metrics:   m.Handler(),
	}).HTTPServer(cfg.Server.Addr)

	if err := kiosk.Start(); err != nil {
		return fmt.Errorf("start kiosk: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Graceful shutdown did not complete: %v", err)
			srv.Close()
		}
		kiosk.Stop()
	}

	if noTray {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			kiosk.Stop()
			return fmt.Errorf("server failed: %w", err)
		case sig := <-signals:
			log.Printf("Shutting down on %v", sig)
		}
		shutdown()
		return nil
	}

	t := tray.New()
	t.OnToggle(func(enabled bool) { kiosk.SetPaused(!enabled) })
	t.OnRestart(kiosk.Restart)
	t.OnOpen(func() { openBrowser("http://" + localAddr(cfg.Server.Addr)) })
	t.OnQuit(shutdown)
	kiosk.OnLevel(t.SetLevel)

	go func() {
		if err := <-serverErrors; err != nil && err != http.ErrServerClosed {
			log.Printf("Server failed: %v", err)
		}
	}()

	// Blocks until Quit is chosen.
	t.Run()
	return nil
}

// localAddr turns a listen address like ":8080" into a browsable host:port.
func localAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and the data directory.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(config.DataDir(), "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
