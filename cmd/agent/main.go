// The monitoring agent: reports the foreground application on an interval,
// uploads screenshots of every display, and sits in the system tray where
// the user can ask permission to close or uninstall it. It may only exit
// once an operator approves that ask.
package main

import (
	"bytes"
	"image/png"
	"log/slog"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/go-resty/resty/v2"
	"github.com/kbinani/screenshot"

	"employee-monitor/internal/config"
	"employee-monitor/internal/models"
)

type agent struct {
	cfg    *config.Agent
	client *resty.Client
	logger *slog.Logger

	release func()

	mu         sync.Mutex
	lastTitle  string
	lastChange time.Time
}

func main() {
	cfg := config.LoadAgent()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if cfg.APIKey == "" {
		slog.Error("API_KEY is not set; ask your administrator for the key shown on the employee record")
		os.Exit(1)
	}

	release, err := acquireInstanceLock()
	if err != nil {
		slog.Error("agent already running", "error", err)
		os.Exit(1)
	}

	a := &agent{
		cfg: cfg,
		client: resty.New().
			SetBaseURL(cfg.ServerURL).
			SetHeader("x-api-key", cfg.APIKey).
			SetTimeout(30 * time.Second),
		logger:     logger,
		release:    release,
		lastChange: time.Now(),
	}

	go a.activityLoop()
	go a.screenshotLoop()

	a.runTray()
}

// runTray blocks on the tray event loop. The close/uninstall items start
// the permission flow; the agent keeps running until an approval arrives.
func (a *agent) runTray() {
	trayApp := app.New()

	if desk, ok := trayApp.(desktop.App); ok {
		closeItem := fyne.NewMenuItem("Request close", func() {
			go a.requestPermission(models.RequestClose)
		})
		uninstallItem := fyne.NewMenuItem("Request uninstall", func() {
			go a.requestPermission(models.RequestUninstall)
		})
		desk.SetSystemTrayMenu(fyne.NewMenu("Monitoring Agent", closeItem, uninstallItem))
	}

	trayApp.Run()
}

// activityLoop reports the foreground window on a fixed interval. The
// sample is classified idle once the title has not changed for the idle
// threshold; duration_seconds carries the reporting interval.
func (a *agent) activityLoop() {
	ticker := time.NewTicker(a.cfg.ActivityInterval)
	defer ticker.Stop()

	for range ticker.C {
		title := foregroundWindowTitle()
		if title == "" {
			title = "Unknown"
		}

		a.mu.Lock()
		if title != a.lastTitle {
			a.lastTitle = title
			a.lastChange = time.Now()
		}
		status := models.ReportWorking
		if time.Since(a.lastChange) > a.cfg.IdleThreshold {
			status = models.ReportIdle
		}
		a.mu.Unlock()

		_, err := a.client.R().
			SetBody(map[string]any{
				"app_name":         title,
				"status":           status,
				"duration_seconds": int(a.cfg.ActivityInterval.Seconds()),
			}).
			Post("/api/log-activity")
		if err != nil {
			a.logger.Warn("activity report failed", "error", err)
		}
	}
}

// screenshotLoop captures every display on its own interval and uploads
// each as a PNG.
func (a *agent) screenshotLoop() {
	ticker := time.NewTicker(a.cfg.ScreenshotInterval)
	defer ticker.Stop()

	for range ticker.C {
		for i := 0; i < screenshot.NumActiveDisplays(); i++ {
			img, err := screenshot.CaptureRect(screenshot.GetDisplayBounds(i))
			if err != nil {
				a.logger.Warn("capture failed", "display", i, "error", err)
				continue
			}

			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				a.logger.Warn("encode failed", "display", i, "error", err)
				continue
			}

			_, err = a.client.R().
				SetMultipartField("screenshot", "screenshot.png", "image/png", &buf).
				Post("/api/upload-screenshot")
			if err != nil {
				a.logger.Warn("screenshot upload failed", "display", i, "error", err)
			}
		}
	}
}

type submitResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type permissionResponse struct {
	RequestID   string  `json:"request_id"`
	Status      string  `json:"status"`
	Reason      *string `json:"reason"`
	RespondedAt *string `json:"responded_at"`
}

// requestPermission submits a close/uninstall ask and polls until an
// operator answers. Submitting again while a request is pending is safe:
// the server hands back the outstanding request's id.
func (a *agent) requestPermission(requestType string) {
	var submitted submitResponse
	resp, err := a.client.R().
		SetBody(map[string]string{"request_type": requestType}).
		SetResult(&submitted).
		Post("/api/agent-request")
	if err != nil || resp.IsError() {
		a.logger.Warn("permission request failed", "type", requestType, "error", err)
		return
	}
	a.logger.Info("permission requested",
		"type", requestType, "request_id", submitted.RequestID, "message", submitted.Message)

	for {
		time.Sleep(a.cfg.PollInterval)

		var status permissionResponse
		resp, err := a.client.R().
			SetQueryParam("request_id", submitted.RequestID).
			SetResult(&status).
			Get("/api/check-permission")
		if err != nil || resp.IsError() {
			a.logger.Warn("permission poll failed", "request_id", submitted.RequestID, "error", err)
			continue
		}

		switch status.Status {
		case models.RequestApproved:
			a.logger.Info("permission approved, exiting", "type", requestType)
			a.release()
			os.Exit(0)
		case models.RequestDenied:
			reason := ""
			if status.Reason != nil {
				reason = *status.Reason
			}
			a.logger.Info("permission denied", "type", requestType, "reason", reason)
			return
		}
	}
}
