// Package menu renders screens for the chat surface. Every renderer is a pure
// function of session state and an external data snapshot; nothing here talks
// to the panel or mutates a session.
package menu

import (
	"fmt"
	"strings"

	"github.com/PanelPilot/PanelPilot/internal/bus"
	"github.com/PanelPilot/PanelPilot/internal/panel"
	"github.com/PanelPilot/PanelPilot/internal/wizard"
)

// DefaultTaskPageSize is how many tasks one task-list screen shows.
const DefaultTaskPageSize = 5

// Screen is the outbound render contract: display text plus a button layout.
// Buttons carry the same opaque token format the dispatcher parses inbound.
type Screen struct {
	Text     string
	Keyboard [][]bus.Button
}

// TitleBar builds the decorative header row. Its button is a label only.
func TitleBar(title string) []bus.Button {
	return []bus.Button{{Label: "❖ " + title + " ❖", Data: "ignore"}}
}

// FooterRuler builds the decorative footer row.
func FooterRuler() []bus.Button {
	return []bus.Button{
		{Label: "─────« Cloud", Data: "ignore"},
		{Label: "Manager »────", Data: "ignore"},
	}
}

// Main renders the account selection menu. Accounts are listed in natural
// order, two per row, below a running-jobs shortcut.
func Main(accounts []string) Screen {
	sorted := make([]string, len(accounts))
	copy(sorted, accounts)
	SortAccounts(sorted)

	kb := [][]bus.Button{
		TitleBar("Cloud Manager Panel"),
		{{Label: "📝 Snatch jobs", Data: "tasks:all"}},
		{{Label: "👇 Pick an account", Data: "ignore"}},
	}
	for i := 0; i < len(sorted); i += 2 {
		row := []bus.Button{{Label: sorted[i], Data: "account:" + sorted[i]}}
		if i+1 < len(sorted) {
			row = append(row, bus.Button{Label: sorted[i+1], Data: "account:" + sorted[i+1]})
		}
		kb = append(kb, row)
	}
	kb = append(kb, FooterRuler())

	return Screen{Text: "Pick the account to operate on:", Keyboard: kb}
}

// Account renders one account's menu. Instance buttons encode the instance's
// position in the cached list, not its identity; the dispatcher resolves the
// position against the same cached list this screen was rendered from.
func Account(account string, instances []panel.Instance, fetchErr error) Screen {
	kb := [][]bus.Button{
		TitleBar("Account: " + account),
		{
			{Label: "🖥️ Instance actions", Data: "menu:instances:" + account},
			{Label: "🤖 Create / snatch", Data: "start_snatch:" + account},
		},
		{{Label: "👇 Pick an instance below 👇", Data: "ignore"}},
	}

	switch {
	case fetchErr != nil:
		kb = append(kb, []bus.Button{{Label: "❌ Instance list failed: " + fetchErr.Error(), Data: "ignore"}})
	case len(instances) == 0:
		kb = append(kb, []bus.Button{{Label: "No instances in this account", Data: "ignore"}})
	default:
		for i := 0; i < len(instances); i += 2 {
			row := []bus.Button{instanceButton(instances[i], i)}
			if i+1 < len(instances) {
				row = append(row, instanceButton(instances[i+1], i+1))
			}
			kb = append(kb, row)
		}
	}

	kb = append(kb, []bus.Button{{Label: "⬅️ Main menu", Data: "back:main"}})
	kb = append(kb, FooterRuler())

	text := fmt.Sprintf("Account *%s* selected.\nPick a function or one of the instances below:", account)
	return Screen{Text: text, Keyboard: kb}
}

func instanceButton(inst panel.Instance, pos int) bus.Button {
	return bus.Button{
		Label: fmt.Sprintf("%s (%s)", inst.DisplayName, inst.LifecycleState),
		Data:  fmt.Sprintf("exec:%d", pos),
	}
}

// InstanceActions renders the fixed lifecycle action set for a selected instance.
func InstanceActions(account string, inst panel.Instance) Screen {
	kb := [][]bus.Button{
		TitleBar("Instance actions"),
		{
			{Label: "✅ Start", Data: "perform_action:" + panel.ActionStart},
			{Label: "🛑 Stop", Data: "perform_action:" + panel.ActionStop},
		},
		{
			{Label: "🔄 Restart", Data: "perform_action:" + panel.ActionRestart},
			{Label: "🗑️ Terminate", Data: "perform_action:" + panel.ActionTerminate},
		},
		{
			{Label: "🌐 Change IP", Data: "perform_action:" + panel.ActionChangeIP},
			{Label: "🌐 Assign IPv6", Data: "perform_action:" + panel.ActionAssignIPv6},
		},
		{{Label: "⬅️ Back", Data: "back:account:" + account}},
		FooterRuler(),
	}

	text := fmt.Sprintf("Instance *%s* selected.\nPick the action to run:", inst.DisplayName)
	return Screen{Text: text, Keyboard: kb}
}

// ConfirmPrompt renders the destructive-action warning. The action button is
// repeated so the second press carries the identical token.
func ConfirmPrompt(account, action string, inst panel.Instance, windowSeconds int) Screen {
	kb := [][]bus.Button{
		TitleBar("Confirm " + strings.ToLower(action)),
		{{Label: "⚠️ Yes, " + strings.ToLower(action) + " it", Data: "perform_action:" + action}},
		{{Label: "⬅️ Cancel", Data: "back:account:" + account}},
		FooterRuler(),
	}
	text := fmt.Sprintf(
		"⚠️ *%s* is destructive.\nPress again within %d seconds to %s *%s*.",
		action, windowSeconds, strings.ToLower(action), inst.DisplayName,
	)
	return Screen{Text: text, Keyboard: kb}
}

// Result renders a command outcome with a path back to the account menu.
func Result(account, text string) Screen {
	kb := [][]bus.Button{
		TitleBar("Command result"),
		{{Label: "⬅️ Back to account", Data: "back:account:" + account}},
		FooterRuler(),
	}
	return Screen{Text: text, Keyboard: kb}
}

// Wizard renders the parameter configuration screen. Visible fields derive
// from the form spec's visibility predicates against the current values; the
// submit button appears only once every visible required field has a value.
func Wizard(account string, form map[string]string) Screen {
	var text strings.Builder
	text.WriteString("⚙️ *Configure instance parameters*\n\n")
	text.WriteString(fmt.Sprintf("Name: `%s`\n", valueOr(form[wizard.KeyNamePrefix], "n/a")))

	shape := form[wizard.KeyShape]
	arch := "not selected"
	switch {
	case strings.Contains(shape, "A1.Flex"):
		arch = "ARM"
	case strings.Contains(shape, "E2.1.Micro"):
		arch = "AMD"
	}
	text.WriteString(fmt.Sprintf("Shape: `%s`\n", arch))

	kb := [][]bus.Button{TitleBar("Parameters")}
	for _, f := range wizard.Spec() {
		if !f.Visible(form) {
			continue
		}
		if f.Key != wizard.KeyShape {
			text.WriteString(fmt.Sprintf("%s: `%s`\n", f.Title, valueOr(form[f.Key], "not selected")))
		}
		kb = append(kb, []bus.Button{{Label: "─── " + f.Title + " ───", Data: "ignore"}})
		row := make([]bus.Button, 0, len(f.Options))
		for _, opt := range f.Options {
			label := opt.Label
			if form[f.Key] == opt.Value {
				label = "✅ " + label
			}
			row = append(row, bus.Button{
				Label: label,
				Data:  "form_param:" + f.Key + ":" + opt.Value,
			})
		}
		kb = append(kb, row)
	}

	text.WriteString(fmt.Sprintf(
		"\nRetry interval: `%s-%s s`",
		valueOr(form[wizard.KeyMinDelay], "45"),
		valueOr(form[wizard.KeyMaxDelay], "90"),
	))

	if wizard.SubmitEligible(form) {
		kb = append(kb, []bus.Button{{Label: "🚀 Submit", Data: "form_submit"}})
	}
	kb = append(kb, []bus.Button{{Label: "❌ Cancel", Data: "back:account:" + account}})
	kb = append(kb, FooterRuler())

	return Screen{Text: text.String(), Keyboard: kb}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Tasks renders the task category menu.
func Tasks() Screen {
	kb := [][]bus.Button{
		TitleBar("Job lookup"),
		{{Label: "🏃 Running jobs", Data: "tasks:view:snatch:running:1"}},
		{{Label: "✅ Completed jobs", Data: "tasks:view:snatch:completed:1"}},
		{{Label: "⬅️ Main menu", Data: "back:main"}},
		FooterRuler(),
	}
	return Screen{Text: "Pick the job category to view:", Keyboard: kb}
}

// TaskList renders one page of the job list. Running snatch jobs carry a
// structured detail blob when the panel provides one; the raw result text is
// the mandatory fallback since the detail format is not contractually
// guaranteed.
func TaskList(category, status string, tasks []panel.Task, requestedPage int) Screen {
	page, current, total := Paginate(tasks, DefaultTaskPageSize, requestedPage)

	statusText := "completed"
	if status == panel.StatusRunning {
		statusText = "running"
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("*%s* %s jobs across all accounts:\n\n", statusText, category))
	if len(tasks) == 0 {
		text.WriteString("No jobs found.")
	}
	for _, t := range page {
		marker := ""
		if t.Terminal() {
			if t.Status == panel.StatusSuccess {
				marker = " ✅"
			} else {
				marker = " ❌"
			}
		}
		text.WriteString(fmt.Sprintf("*%s* (account: %s)%s:\n", t.Name, valueOr(t.Alias, "n/a"), marker))
		text.WriteString(formatTaskResult(t))
		text.WriteString("\n\n")
	}

	kb := [][]bus.Button{TitleBar("Jobs")}
	if total > 1 {
		nav := []bus.Button{}
		if current > 1 {
			nav = append(nav, bus.Button{
				Label: "« Prev",
				Data:  fmt.Sprintf("tasks:view:%s:%s:%d", category, status, current-1),
			})
		}
		nav = append(nav, bus.Button{Label: fmt.Sprintf("%d/%d", current, total), Data: "ignore"})
		if current < total {
			nav = append(nav, bus.Button{
				Label: "Next »",
				Data:  fmt.Sprintf("tasks:view:%s:%s:%d", category, status, current+1),
			})
		}
		kb = append(kb, nav)
	}
	kb = append(kb, []bus.Button{{Label: "⬅️ Back", Data: "tasks:all"}})
	kb = append(kb, FooterRuler())

	return Screen{Text: text.String(), Keyboard: kb}
}

func formatTaskResult(t panel.Task) string {
	if detail, ok := panel.ParseTaskDetail(t.Result); ok {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("  shape: `%s`\n", detail.Shape))
		b.WriteString(fmt.Sprintf("  ocpus: `%g`  memory: `%g GB`  disk: `%d GB`", detail.OCPUs, detail.MemoryInGbs, detail.BootVolumeSize))
		if ts := detail.StartedAt(); !ts.IsZero() {
			b.WriteString(fmt.Sprintf("\n  started: `%s`", ts.Format("2006-01-02 15:04")))
		}
		if detail.AttemptCount > 0 {
			b.WriteString(fmt.Sprintf("\n  attempts: `%d`", detail.AttemptCount))
		}
		return b.String()
	}
	return "`" + valueOr(t.Result, "no result") + "`"
}
