package main

import (
	"github.com/atotto/clipboard"
	"github.com/e-grid/e-grid/internal/app"
	"github.com/e-grid/e-grid/internal/cli"
	"github.com/e-grid/e-grid/internal/logger"
	"github.com/getlantern/systray"
	"go.uber.org/zap"
)

// runWithTray runs srv under a status-bar icon instead of purely headless,
// adapting the teacher's cmd/neru/main.go onReady/onExit menu (trimmed to
// the things e_grid's tray actually controls: copying the version and
// quitting the tracker).
func runWithTray(srv *app.Server) {
	systray.Run(func() { onTrayReady(srv) }, func() {})
}

func onTrayReady(srv *app.Server) {
	systray.SetTitle("▦")
	systray.SetTooltip("e_grid - window grid tracker")

	mVersion := systray.AddMenuItem("Version "+cli.Version, "e_grid version")
	mVersion.Disable()

	mVersionCopy := systray.AddMenuItem("Copy version", "Copy version to clipboard")

	systray.AddSeparator()

	mQuit := systray.AddMenuItem("Quit e_grid", "Stop the tracker and exit")

	go func() {
		for {
			select {
			case <-mVersionCopy.ClickedCh:
				handleVersionCopy()
			case <-mQuit.ClickedCh:
				srv.Stop()
				systray.Quit()

				return
			}
		}
	}()
}

func handleVersionCopy() {
	if err := clipboard.WriteAll(cli.Version); err != nil {
		logger.Get().Error("error copying version to clipboard", zap.Error(err))
	}
}
