package main

import (
	"context"
	"flag"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/byechat/internal/app"
	"github.com/ayusman/byechat/internal/config"
	"github.com/ayusman/byechat/internal/hook"
	"github.com/ayusman/byechat/internal/logging"
	"github.com/ayusman/byechat/internal/server"
	"github.com/ayusman/byechat/internal/store"
	"github.com/ayusman/byechat/internal/tray"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to config.yaml")
	noTray := flag.Bool("no-tray", false, "run headless and wait for a signal instead of showing the tray")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup("info", true)
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().Msg("ByeChat - Vanishing Act")

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("failed to initialize store")
	}
	defer st.Close()

	saved, err := st.Settings().All()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read saved settings")
	}
	if err := config.ApplySettings(cfg, saved); err != nil {
		log.Warn().Err(err).Msg("ignoring invalid saved settings")
	}

	a := app.New(app.ConfigFrom(cfg))
	defer a.Close()

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.Info().Str("dir", webDir).Msg("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		PreviewFPS: cfg.Server.PreviewFPS,
		App:        a,
		Store:      st,
		Settings:   cfg,
		OnSettings: func(next config.Config) error {
			return a.Configure(next.Camera.DeviceIndex, next.Output.Device, next.Effect.FadeStep)
		},
	})

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Error().Err(err).Msg("server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hooks := hook.NewDispatcher(hook.FromConfig(cfg.Hooks))
	hooksDone := make(chan struct{})
	go func() {
		hooks.Run(ctx, a)
		close(hooksDone)
	}()

	if *noTray {
		waitForSignal()
	} else {
		t := tray.New(a)
		t.OnPreview(func() { openBrowser(previewURL(cfg.Server.Addr)) })
		t.OnQuit(func() { log.Info().Msg("quit requested") })

		go func() {
			waitForSignal()
			t.Quit()
		}()
		t.Run()
	}

	log.Info().Msg("shutting down")
	a.Stop()
	cancel()
	<-hooksDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	signal.Stop(sig)
	log.Info().Str("signal", s.String()).Msg("received signal")
}

func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(homeDir, ".byechat", "config.yaml")
}

// previewURL turns a listen address into a browsable URL.
func previewURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
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
		log.Warn().Err(err).Str("url", url).Msg("failed to open browser")
		return
	}
	go cmd.Wait()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.byechat/web.
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

	homeWebDir := filepath.Join(homeDir, ".byechat", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
