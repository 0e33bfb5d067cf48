// Package dispatch turns opaque button-press tokens into state transitions:
// it parses inbound events, validates session preconditions, drives the panel
// client, and emits the next screen through the bus.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PanelPilot/PanelPilot/internal/bus"
	"github.com/PanelPilot/PanelPilot/internal/journal"
	"github.com/PanelPilot/PanelPilot/internal/menu"
	"github.com/PanelPilot/PanelPilot/internal/panel"
	"github.com/PanelPilot/PanelPilot/internal/poller"
	"github.com/PanelPilot/PanelPilot/internal/session"
	"github.com/PanelPilot/PanelPilot/internal/wizard"
)

const sessionExpiredText = "Session expired, please retry."

// PanelAPI is the panel client surface the dispatcher depends on.
type PanelAPI interface {
	ListAccounts(ctx context.Context) ([]string, error)
	ListInstances(ctx context.Context, account string) ([]panel.Instance, error)
	PerformInstanceAction(ctx context.Context, account string, req panel.ActionRequest) (*panel.SubmitResult, error)
	SubmitJob(ctx context.Context, account string, kind panel.JobKind, params map[string]any) (*panel.SubmitResult, error)
	JobStatus(ctx context.Context, taskID string) (*panel.Task, error)
	ListJobs(ctx context.Context, category, status string) ([]panel.Task, error)
}

// WatchFunc spawns a background watcher for one submitted job. The default
// implementation runs a poller.Watcher; tests substitute their own.
type WatchFunc func(ctx context.Context, jobID, jobName string, notify poller.NotifyFunc)

// Options configures a Dispatcher. Bus, Panel and Sessions are required;
// everything else has working defaults.
type Options struct {
	Bus           *bus.MessageBus
	Panel         PanelAPI
	Sessions      *session.Store
	Journal       *journal.Service
	ConfirmWindow time.Duration
	PollInterval  time.Duration
	PollAttempts  int
	Now           func() time.Time
	Watch         WatchFunc
}

// Dispatcher is the session state machine's transition function.
type Dispatcher struct {
	bus           *bus.MessageBus
	panel         PanelAPI
	sessions      *session.Store
	journal       *journal.Service
	confirmWindow time.Duration
	now           func() time.Time
	watch         WatchFunc

	mu     sync.Mutex
	queues map[string]chan *bus.InboundEvent
}

// queueDepth bounds how many unprocessed presses one session may pile up.
const queueDepth = 64

// New creates a dispatcher.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		bus:           opts.Bus,
		panel:         opts.Panel,
		sessions:      opts.Sessions,
		journal:       opts.Journal,
		confirmWindow: opts.ConfirmWindow,
		now:           opts.Now,
		watch:         opts.Watch,
		queues:        make(map[string]chan *bus.InboundEvent),
	}
	if d.journal != nil {
		d.bus.OnDelivery(d.recordDelivery)
	}
	if d.confirmWindow <= 0 {
		d.confirmWindow = DefaultConfirmWindow
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.watch == nil {
		watcher := &poller.Watcher{
			Panel:       opts.Panel,
			Journal:     opts.Journal,
			Interval:    opts.PollInterval,
			MaxAttempts: opts.PollAttempts,
		}
		d.watch = watcher.Watch
	}
	return d
}

// Run consumes inbound events until ctx is cancelled. Each session gets its
// own FIFO queue drained by one worker, so same-session events are handled
// strictly in arrival order while distinct sessions proceed concurrently.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		ev, err := d.bus.ConsumeInbound(ctx)
		if err != nil {
			return err
		}
		d.enqueue(ctx, ev)
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, ev *bus.InboundEvent) {
	key := ev.SessionKey()

	d.mu.Lock()
	q, ok := d.queues[key]
	if !ok {
		q = make(chan *bus.InboundEvent, queueDepth)
		d.queues[key] = q
		go d.drain(ctx, key, q)
	}
	d.mu.Unlock()

	select {
	case q <- ev:
	case <-ctx.Done():
	}
}

func (d *Dispatcher) drain(ctx context.Context, key string, q chan *bus.InboundEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-q:
			d.sessions.Lock(key)
			d.Handle(ctx, ev)
			d.sessions.Unlock(key)
		}
	}
}

// Handle processes a single event. Callers must hold the event's session gate.
func (d *Dispatcher) Handle(ctx context.Context, ev *bus.InboundEvent) {
	parts := strings.Split(ev.Data, ":")
	command := parts[0]

	slog.Debug("dispatching", "session", ev.SessionKey(), "command", command, "trace_id", ev.TraceID)

	switch command {
	case "ignore":
		// Buttons used purely as labels and separators.
	case "start":
		d.showMain(ctx, ev)
	case "account":
		if len(parts) < 2 {
			d.sessionExpired(ev)
			return
		}
		d.showAccount(ctx, ev, parts[1], true)
	case "exec":
		d.selectInstance(ev, parts[1:])
	case "perform_action":
		if len(parts) < 2 {
			d.sessionExpired(ev)
			return
		}
		d.performAction(ctx, ev, parts[1])
	case "start_create", "start_snatch":
		if len(parts) < 2 {
			d.sessionExpired(ev)
			return
		}
		kind := session.ActionSnatch
		if command == "start_create" {
			kind = session.ActionCreate
		}
		d.startWizard(ev, kind, parts[1])
	case "form_param":
		if len(parts) < 3 {
			d.sessionExpired(ev)
			return
		}
		d.setFormParam(ev, parts[1], strings.Join(parts[2:], ":"))
	case "form_submit":
		d.submitForm(ctx, ev)
	case "menu":
		// Legacy single-instance-menu entry; instances are picked directly
		// from the account menu now.
		d.send(ev, menu.Screen{Text: "Tap the instance you want to operate on in the account menu."})
	case "tasks":
		d.showTasks(ctx, ev, parts[1:])
	case "back":
		d.navigateBack(ctx, ev, parts[1:])
	default:
		slog.Warn("unknown command token", "command", command)
	}
}

// --- screen transitions ---

func (d *Dispatcher) showMain(ctx context.Context, ev *bus.InboundEvent) {
	d.sessions.Clear(ev.SessionKey())

	accounts, err := d.panel.ListAccounts(ctx)
	if err != nil {
		d.edit(ev, menu.Screen{
			Text:     "❌ Could not fetch the account list: " + err.Error(),
			Keyboard: [][]bus.Button{{{Label: "🔄 Retry", Data: "start"}}},
		})
		return
	}
	d.edit(ev, menu.Main(accounts))
}

// showAccount loads and caches the account's instance list, then renders the
// account menu. The cached list is the arena exec: tokens index into; it is
// replaced only here, never between render and resolve.
func (d *Dispatcher) showAccount(ctx context.Context, ev *bus.InboundEvent, account string, loading bool) {
	if loading {
		d.edit(ev, menu.Screen{Text: fmt.Sprintf("Loading instances for *%s*…", account)})
	}

	instances, err := d.panel.ListInstances(ctx, account)
	sess := d.sessions.Get(ev.SessionKey())
	sess.CurrentAccount = account
	sess.SelectedInstance = nil
	sess.PendingConfirm = nil
	if err != nil {
		sess.CachedInstances = nil
	} else {
		sess.CachedInstances = instances
	}

	d.edit(ev, menu.Account(account, sess.CachedInstances, err))
}

func (d *Dispatcher) selectInstance(ev *bus.InboundEvent, args []string) {
	if len(args) < 1 {
		d.sessionExpired(ev)
		return
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		d.sessionExpired(ev)
		return
	}

	sess := d.sessions.Get(ev.SessionKey())
	if sess.CurrentAccount == "" || sess.CachedInstances == nil || pos < 0 || pos >= len(sess.CachedInstances) {
		d.sessionExpired(ev)
		return
	}

	inst := sess.CachedInstances[pos]
	sess.SelectedInstance = &inst
	sess.PendingConfirm = nil

	d.edit(ev, menu.InstanceActions(sess.CurrentAccount, inst))
}

func (d *Dispatcher) performAction(ctx context.Context, ev *bus.InboundEvent, action string) {
	sess := d.sessions.Get(ev.SessionKey())
	if sess.CurrentAccount == "" || sess.SelectedInstance == nil {
		d.sessionExpired(ev)
		return
	}
	inst := *sess.SelectedInstance
	account := sess.CurrentAccount

	if destructive(action) && !d.confirmDestructive(sess, action, inst.ID) {
		d.edit(ev, menu.ConfirmPrompt(account, action, inst, int(d.confirmWindow/time.Second)))
		return
	}

	d.edit(ev, menu.Screen{Text: fmt.Sprintf("Sending *%s* to *%s*…", action, inst.DisplayName)})

	res, err := d.panel.PerformInstanceAction(ctx, account, panel.ActionRequest{
		Action:       action,
		InstanceID:   inst.ID,
		InstanceName: inst.DisplayName,
		VnicID:       inst.VnicID,
	})
	if err != nil {
		d.edit(ev, menu.Result(account, "❌ Command failed: "+err.Error()))
		return
	}

	jobName := action + " on " + inst.DisplayName
	d.recordJob(ev, res.TaskID, "action", account, jobName)
	d.spawnWatch(ctx, ev, res.TaskID, jobName)

	sess.SelectedInstance = nil
	text := fmt.Sprintf(
		"✅ Command sent.\nTask ID: `%s`\n\nI'll watch the job in the background and notify you when it finishes.",
		res.TaskID,
	)
	d.edit(ev, menu.Result(account, text))
}

func (d *Dispatcher) startWizard(ev *bus.InboundEvent, kind session.Action, account string) {
	key := ev.SessionKey()
	d.sessions.Clear(key)

	sess := d.sessions.Get(key)
	sess.CurrentAccount = account
	sess.ActionInProgress = kind
	sess.FormData = wizard.Seed(d.now())

	d.edit(ev, menu.Wizard(account, sess.FormData))
}

func (d *Dispatcher) setFormParam(ev *bus.InboundEvent, key, value string) {
	sess := d.sessions.Get(ev.SessionKey())
	if sess.ActionInProgress == "" {
		d.sessionExpired(ev)
		return
	}
	wizard.SetField(sess.FormData, key, value)
	// Re-render unconditionally; channels tolerate a no-op edit silently.
	d.edit(ev, menu.Wizard(sess.CurrentAccount, sess.FormData))
}

func (d *Dispatcher) submitForm(ctx context.Context, ev *bus.InboundEvent) {
	sess := d.sessions.Get(ev.SessionKey())
	if sess.ActionInProgress == "" || !wizard.SubmitEligible(sess.FormData) {
		d.sessionExpired(ev)
		return
	}
	account := sess.CurrentAccount
	kind := panel.JobSnatch
	if sess.ActionInProgress == session.ActionCreate {
		kind = panel.JobCreate
	}

	payload, err := wizard.BuildPayload(sess.FormData)
	if err != nil {
		// Validation failures keep the wizard intact for correction.
		d.send(ev, menu.Screen{Text: "❌ " + err.Error()})
		return
	}
	jobName, _ := payload[wizard.KeyNamePrefix].(string)

	d.edit(ev, menu.Screen{Text: "Submitting job…"})
	res, submitErr := d.panel.SubmitJob(ctx, account, kind, payload)

	// The session clears after submission, success or failure alike.
	d.sessions.Clear(ev.SessionKey())

	if submitErr != nil {
		d.send(ev, menu.Screen{Text: "❌ Job submission failed: " + submitErr.Error()})
	} else {
		d.recordJob(ev, res.TaskID, string(kind), account, jobName)
		d.spawnWatch(ctx, ev, res.TaskID, jobName)
		d.send(ev, menu.Screen{Text: fmt.Sprintf("✅ Job submitted.\nTask ID: `%s`", res.TaskID)})
	}

	// Back to the account menu as a fresh message.
	instances, listErr := d.panel.ListInstances(ctx, account)
	sess = d.sessions.Get(ev.SessionKey())
	sess.CurrentAccount = account
	if listErr == nil {
		sess.CachedInstances = instances
	}
	d.send(ev, menu.Account(account, sess.CachedInstances, listErr))
}

func (d *Dispatcher) showTasks(ctx context.Context, ev *bus.InboundEvent, args []string) {
	if len(args) == 0 || args[0] == "all" {
		d.edit(ev, menu.Tasks())
		return
	}
	if args[0] != "view" || len(args) < 3 {
		d.sessionExpired(ev)
		return
	}
	category, status := args[1], args[2]
	page := 1
	if len(args) >= 4 {
		if n, err := strconv.Atoi(args[3]); err == nil {
			page = n
		}
	}

	d.edit(ev, menu.Screen{Text: fmt.Sprintf("Querying *%s* %s jobs…", status, category)})

	tasks, err := d.panel.ListJobs(ctx, category, status)
	if err != nil {
		d.edit(ev, menu.Screen{
			Text:     "❌ Job query failed: " + err.Error(),
			Keyboard: [][]bus.Button{{{Label: "⬅️ Back", Data: "tasks:all"}}},
		})
		return
	}
	d.edit(ev, menu.TaskList(category, status, tasks, page))
}

func (d *Dispatcher) navigateBack(ctx context.Context, ev *bus.InboundEvent, args []string) {
	if len(args) == 0 {
		d.sessionExpired(ev)
		return
	}
	switch args[0] {
	case "main":
		d.showMain(ctx, ev)
	case "account":
		account := ""
		if len(args) >= 2 {
			account = args[1]
		}
		if account == "" {
			account = d.sessions.Get(ev.SessionKey()).CurrentAccount
		}
		if account == "" {
			d.sessionExpired(ev)
			return
		}
		d.sessions.Clear(ev.SessionKey())
		d.showAccount(ctx, ev, account, true)
	default:
		d.sessionExpired(ev)
	}
}

// --- helpers ---

func (d *Dispatcher) recordJob(ev *bus.InboundEvent, jobID, kind, account, name string) {
	if d.journal == nil {
		return
	}
	err := d.journal.RecordSubmission(journal.Job{
		JobID:   jobID,
		Kind:    kind,
		Account: account,
		Name:    name,
		Channel: ev.Channel,
		ChatID:  ev.ChatID,
		TraceID: ev.TraceID,
	})
	if err != nil {
		slog.Warn("journal record failed", "job_id", jobID, "error", err)
	}
}

// spawnWatch starts the background job watcher. The watcher outlives the
// session and reports back only through a notification message; whether that
// message actually reached the surface is journaled by recordDelivery.
func (d *Dispatcher) spawnWatch(ctx context.Context, ev *bus.InboundEvent, jobID, jobName string) {
	channel, chatID, traceID := ev.Channel, ev.ChatID, ev.TraceID
	go d.watch(ctx, jobID, jobName, func(text string) {
		d.bus.PublishOutbound(&bus.OutboundMessage{
			Channel: channel,
			ChatID:  chatID,
			TraceID: traceID,
			JobID:   jobID,
			Text:    text,
		})
	})
}

// recordDelivery journals the channel send outcome for job notifications.
// Only messages stamped with a JobID are notifications; screen renders pass
// through unrecorded.
func (d *Dispatcher) recordDelivery(msg *bus.OutboundMessage, sendErr error) {
	if msg.JobID == "" {
		return
	}
	status := journal.NotifySent
	if sendErr != nil {
		status = journal.NotifyFailed
	}
	if err := d.journal.MarkNotified(msg.JobID, status); err != nil {
		slog.Warn("journal notify update failed", "job_id", msg.JobID, "error", err)
	}
}

func (d *Dispatcher) sessionExpired(ev *bus.InboundEvent) {
	d.edit(ev, menu.Screen{
		Text:     sessionExpiredText,
		Keyboard: [][]bus.Button{{{Label: "⬅️ Main menu", Data: "back:main"}}},
	})
}

// edit replaces the screen the pressed button was attached to, falling back
// to a fresh message when the event carries no message id.
func (d *Dispatcher) edit(ev *bus.InboundEvent, screen menu.Screen) {
	d.bus.PublishOutbound(&bus.OutboundMessage{
		Channel:       ev.Channel,
		ChatID:        ev.ChatID,
		TraceID:       ev.TraceID,
		Text:          screen.Text,
		Keyboard:      screen.Keyboard,
		EditMessageID: ev.MessageID,
	})
}

// send delivers a screen as a new message.
func (d *Dispatcher) send(ev *bus.InboundEvent, screen menu.Screen) {
	d.bus.PublishOutbound(&bus.OutboundMessage{
		Channel:  ev.Channel,
		ChatID:   ev.ChatID,
		TraceID:  ev.TraceID,
		Text:     screen.Text,
		Keyboard: screen.Keyboard,
	})
}
