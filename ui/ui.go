package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/feedarm"
	"github.com/calvinmclean/feedarm/controller"
	"github.com/calvinmclean/feedarm/firmware/arm"
)

// StartFunc connects to the device using cfg. Device output must be copied to out, and the returned
// writer accepts console commands
type StartFunc func(ctx context.Context, cfg controller.Config, out io.Writer) (io.Writer, error)

// FeedArmUI is a status and control window for the feed arm. It implements io.Writer so device output
// can be copied into it
type FeedArmUI struct {
	app   fyne.App
	model *model

	mtx     sync.Mutex
	refresh func()
}

func NewFeedArmUI() *FeedArmUI {
	return &FeedArmUI{
		app:   app.NewWithID("com.calvinmclean.feedarm"),
		model: &model{},
	}
}

// Write implements io.Writer
func (ui *FeedArmUI) Write(p []byte) (int, error) {
	ui.model.write(p, time.Now())

	ui.mtx.Lock()
	refresh := ui.refresh
	ui.mtx.Unlock()
	if refresh != nil {
		fyne.Do(refresh)
	}
	return len(p), nil
}

// Run shows the configuration window, then the status window once connected. It blocks until the
// application quits or ctx is done
func (ui *FeedArmUI) Run(ctx context.Context, cfg *controller.Config, start StartFunc) {
	cw := NewConfigWindow(ui.app)
	cw.OnSubmit = func() {
		commands, err := start(ctx, *cfg, ui)
		if err != nil {
			window := ui.app.NewWindow("Feed Arm - Error")
			window.Show()
			showError(ui.app, window, fmt.Errorf("error connecting: %w", err))
			return
		}
		ui.showMain(ctx, commands)
	}
	cw.Show(cfg)

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			ui.app.Quit()
		})
	}()

	ui.app.Run()
}

func (ui *FeedArmUI) showMain(ctx context.Context, w io.Writer) {
	window := ui.app.NewWindow("Feed Arm")

	lastUnstickTimer := newElapsedTimer()
	lastUnstickTimer.Go(ctx)
	cmd := &commandWriter{writer: w, lastUnstickTimer: lastUnstickTimer}

	stateBanner := canvas.NewText(feedarm.StateMonitoring.String(), colorUnknown)
	stateBanner.TextSize = 24
	stateBanner.TextStyle = fyne.TextStyle{Bold: true}

	feedLabel := widget.NewLabel("-")
	tensionLabel := widget.NewLabel("-")
	rateLabel := widget.NewLabel("-")
	unstickLabel := widget.NewLabel("0")

	logContent := widget.NewLabel("")
	logScroll := container.NewVScroll(logContent)
	logScroll.SetMinSize(fyne.NewSize(400, 150))

	tensionSlider := createTensionSlider(cmd.SetTension)

	ui.mtx.Lock()
	ui.refresh = func() {
		snap := ui.model.snapshot()
		s := snap.status

		stateBanner.Text = stateText(s.State, s.Stalled)
		stateBanner.Color = stateColor(s.State, s.Stalled)
		stateBanner.Refresh()

		if snap.hasStatus {
			feedLabel.SetText(fmt.Sprintf("%.0f° (raw %d)", s.FeedAngle, s.RawFeed))
			tensionLabel.SetText(fmt.Sprintf("%.0f° cmd / %.0f° actual", s.TensionCommand, s.TensionAngle))
			rateLabel.SetText(fmt.Sprintf("%.1f/sec", s.PulseRate))
		}
		unstickLabel.SetText(fmt.Sprintf("%d", s.UnstickCount))
		lastUnstickTimer.Set(snap.lastUnstick)

		logContent.SetText(snap.log)
		logScroll.ScrollToBottom()
	}
	refresh := ui.refresh
	ui.mtx.Unlock()

	content := container.NewVBox(
		container.NewHBox(
			container.NewPadded(stateBanner),
			layout.NewSpacer(),
			widget.NewLabel("Since unstick:"),
			container.NewPadded(lastUnstickTimer.text),
		),
		widget.NewCard("Arm", "", container.NewGridWithColumns(2,
			widget.NewLabel("Feed arm:"), feedLabel,
			widget.NewLabel("Tension:"), tensionLabel,
			widget.NewLabel("Reed rate:"), rateLabel,
			widget.NewLabel("Unsticks:"), unstickLabel,
		)),
		tensionSlider,
		container.NewHBox(
			widget.NewButton("Unstick", cmd.Unstick),
			widget.NewButton("Status", cmd.Status),
			widget.NewButton("Calibrate", cmd.Calibrate),
			widget.NewButton("Verbose", cmd.Verbose),
		),
		widget.NewAccordion(widget.NewAccordionItem("Logs", logScroll)),
	)

	window.SetContent(content)
	window.Resize(fyne.NewSize(450, 400))
	window.SetOnClosed(func() {
		ui.app.Quit()
	})
	window.Show()

	refresh()
}

func createTensionSlider(onSet func(float64)) *fyne.Container {
	cfg := arm.DefaultConfig()
	defaultValue := float64(cfg.TensionAngle)
	valueLabel := widget.NewLabel(fmt.Sprintf("%.0f°", defaultValue))

	slider := widget.NewSlider(float64(cfg.TensionAngleMin), float64(cfg.TensionAngleMax))
	slider.Step = 1
	slider.SetValue(defaultValue)
	slider.OnChanged = func(value float64) {
		valueLabel.SetText(fmt.Sprintf("%.0f°", value))
	}
	slider.OnChangeEnded = onSet

	return container.NewVBox(
		container.NewGridWithColumns(2,
			widget.NewLabel("Spring tension"),
			valueLabel,
		),
		slider,
	)
}
