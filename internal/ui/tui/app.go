package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/usecase"
	"github.com/aalvaropc/xssprobe/internal/usecase/fields"
)

type screen int

const (
	screenProfiles screen = iota
	screenDetail
	screenRun
)

// maxShownResults bounds the result log kept for the run screen.
const maxShownResults = 200

type profileItem struct {
	entry   profileEntry
	current bool
}

func (i profileItem) Title() string {
	if i.current {
		return i.entry.name + " •"
	}
	return i.entry.name
}

func (i profileItem) Description() string {
	p := i.entry.profile
	url := p.URL
	if url == "" {
		url = "(no url)"
	}
	return fmt.Sprintf("%s %s", p.Method, clampString(url, 60))
}

func (i profileItem) FilterValue() string { return i.entry.name }

type model struct {
	theme Theme
	deps  Deps
	ctx   context.Context

	scr    screen
	list   list.Model
	width  int
	height int

	changes <-chan usecase.ProfileEvent
	names   []string
	current string

	// detail
	name    string
	profile domain.RequestProfile
	fields  []domain.TargetField

	// run
	running  bool
	cancel   context.CancelFunc
	events   <-chan domain.RunEvent
	done     <-chan runDoneMsg
	bar      progress.Model
	progress float64
	summary  domain.RunSummary
	results  []domain.PayloadResult
	run      domain.TestRun
	runID    string
	runErr   error

	toast string
}

// Run starts the full-screen UI and blocks until the user quits.
func Run(ctx context.Context, deps Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}

	changes := make(chan usecase.ProfileEvent, 16)
	unsubscribe := deps.Book.Subscribe(func(ev usecase.ProfileEvent) {
		select {
		case changes <- ev:
		default:
		}
	})
	defer unsubscribe()

	m := newModel(ctx, deps, changes)
	p := tea.NewProgram(wrapSafe(m, m.deps.Logger), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()

	if sm, ok := final.(safeModel); ok && sm.m.cancel != nil {
		sm.m.cancel()
	}
	return err
}

func newModel(ctx context.Context, deps Deps, changes <-chan usecase.ProfileEvent) model {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Profiles"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return model{
		theme:   DefaultTheme(),
		deps:    deps,
		ctx:     ctx,
		scr:     screenProfiles,
		list:    l,
		changes: changes,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(cmdLoadProfiles(m.deps.Book), listenProfiles(m.changes))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-8, msg.Height-10)
		m.bar.Width = max(10, msg.Width-12)
		return m, nil

	case profilesLoadedMsg:
		if msg.err != nil {
			m.toast = userMessage(msg.err)
			return m, nil
		}
		m.current = msg.current
		m.names = make([]string, 0, len(msg.entries))
		items := make([]list.Item, 0, len(msg.entries))
		for _, e := range msg.entries {
			m.names = append(m.names, e.name)
			items = append(items, profileItem{entry: e, current: e.name == msg.current})
			if e.name == m.name {
				m.setDetail(e.name, e.profile)
			}
		}
		return m, m.list.SetItems(items)

	case profileChangedMsg:
		m.deps.Logger.Debug("tui.profile_changed", "kind", msg.Kind, "name", msg.Name)
		return m, tea.Batch(cmdLoadProfiles(m.deps.Book), listenProfiles(m.changes))

	case profileActionDoneMsg:
		if msg.err != nil {
			m.toast = userMessage(msg.err)
			return m, nil
		}
		m.toast = ""
		if msg.action == "switch" {
			p, err := m.deps.Book.Get(msg.name)
			if err != nil {
				m.toast = userMessage(err)
				return m, nil
			}
			m.setDetail(msg.name, p)
			m.scr = screenDetail
		}
		return m, nil

	case runEventMsg:
		m.progress = msg.Progress
		m.summary = msg.Summary
		m.results = append(m.results, msg.Result)
		if len(m.results) > maxShownResults {
			m.results = m.results[len(m.results)-maxShownResults:]
		}
		return m, listenRun(m.events, m.done)

	case runDoneMsg:
		m.running = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.run, m.runID, m.runErr = msg.run, msg.id, msg.err
		m.summary = msg.run.Summary
		if msg.run.Summary.Total > 0 {
			m.progress = msg.run.Summary.Progress()
		}
		if msg.err != nil {
			m.deps.Logger.Warn("tui.run_ended", "state", msg.run.State, "err", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.scr == screenProfiles {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch m.scr {
	case screenProfiles:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch key {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			it, ok := m.list.SelectedItem().(profileItem)
			if !ok {
				return m, nil
			}
			return m, cmdSwitchProfile(m.deps.Book, it.entry.name)
		case "n":
			return m, cmdCreateProfile(m.deps.Book, m.names)
		case "d":
			it, ok := m.list.SelectedItem().(profileItem)
			if !ok {
				return m, nil
			}
			return m, cmdDeleteProfile(m.deps.Book, it.entry.name)
		}

	case screenDetail:
		switch key {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc", "b":
			m.scr = screenProfiles
			m.toast = ""
			return m, nil
		case "tab", "t":
			return m, m.cycleTarget()
		case "l":
			return m, m.cycleLevel()
		case "r", "enter":
			return m.startRun()
		}
		return m, nil

	case screenRun:
		switch key {
		case "ctrl+c", "esc":
			if m.running {
				if m.cancel != nil {
					m.cancel()
				}
				m.toast = "Cancelling…"
				return m, nil
			}
			if key == "ctrl+c" {
				return m, tea.Quit
			}
			m.scr = screenDetail
			m.toast = ""
			return m, nil
		case "b":
			if !m.running {
				m.scr = screenDetail
				m.toast = ""
			}
			return m, nil
		case "r":
			if !m.running {
				return m.startRun()
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) setDetail(name string, p domain.RequestProfile) {
	m.name = name
	m.profile = p
	m.fields = fields.Enumerate(p)
}

func (m model) cycleTarget() tea.Cmd {
	if len(m.fields) == 0 {
		return nil
	}
	next := 0
	for i, f := range m.fields {
		if f.Name == m.profile.XSS.TargetField && f.InBody() == (m.profile.XSS.ValueType == domain.ValueBody) {
			next = (i + 1) % len(m.fields)
			break
		}
	}
	f := m.fields[next]
	return cmdUpdateProfile(m.deps.Book, m.name, func(p *domain.RequestProfile) error {
		p.XSS.TargetField = f.Name
		p.XSS.ValueType = domain.ValueParams
		if f.InBody() {
			p.XSS.ValueType = domain.ValueBody
		}
		return nil
	})
}

func (m model) cycleLevel() tea.Cmd {
	levels := domain.PayloadLevels()
	next := levels[0]
	for i, l := range levels {
		if l == m.profile.XSS.PayloadLevel {
			next = levels[(i+1)%len(levels)]
		}
	}
	return cmdUpdateProfile(m.deps.Book, m.name, func(p *domain.RequestProfile) error {
		p.XSS.PayloadLevel = next
		return nil
	})
}

func (m model) startRun() (tea.Model, tea.Cmd) {
	if _, err := usecase.ValidateRun(m.profile); err != nil {
		m.toast = userMessage(err)
		return m, nil
	}

	m.scr = screenRun
	m.running = true
	m.toast = ""
	m.progress = 0
	m.summary = domain.RunSummary{}
	m.results = nil
	m.run, m.runID, m.runErr = domain.TestRun{}, "", nil

	m.events, m.done, m.cancel = startRunAsync(m.ctx, m.deps, m.name, m.profile)
	return m, listenRun(m.events, m.done)
}

func (m model) View() string {
	wrap := lipgloss.NewStyle().Padding(1, 2)
	header := m.theme.Title.Render("xssprobe") + "  " +
		m.theme.Subtitle.Render("reflected XSS probe") + "\n" +
		m.theme.Help.Render("workspace: "+m.deps.Root) + "\n"

	toast := ""
	if m.toast != "" {
		toast = "\n" + m.theme.Toast.Render(m.toast)
	}

	switch m.scr {
	case screenProfiles:
		help := m.theme.Help.Render("↑/↓ navigate • enter open • n new • d delete • / search • q quit")
		return wrap.Render(header + "\n" + m.theme.Card.Render(m.list.View()) + toast + "\n" + help)

	case screenDetail:
		help := m.theme.Help.Render("r run • t next target • l next level • esc back • q quit")
		return wrap.Render(header + "\n" + m.theme.Card.Render(renderDetail(m.theme, m.name, m.profile, m.fields)) + toast + "\n" + help)

	case screenRun:
		help := "esc cancel"
		if !m.running {
			help = "r run again • esc/b back • ctrl+c quit"
		}
		body := renderRun(m.theme, m.bar.ViewAs(m.progress), m.summary, m.results, m.visibleResults(), m.running, m.run, m.runID, m.runErr)
		return wrap.Render(header + "\n" + m.theme.Card.Render(body) + toast + "\n" + m.theme.Help.Render(help))

	default:
		return wrap.Render(header + "\n" + "unknown state")
	}
}

func (m model) visibleResults() int {
	n := m.height - 18
	if n < 5 {
		n = 5
	}
	return n
}

func renderDetail(t Theme, name string, p domain.RequestProfile, fs []domain.TargetField) string {
	var b strings.Builder
	b.WriteString(t.Title.Render(name))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s %s\n", p.Method, p.URL))
	b.WriteString(fmt.Sprintf("level: %s • value type: %s\n\n", p.XSS.PayloadLevel, p.XSS.ValueType))

	if len(fs) == 0 {
		b.WriteString(t.Help.Render("no injectable fields (set a URL with query params or a body)"))
		return b.String()
	}
	b.WriteString("Fields:\n")
	for _, f := range fs {
		mark := "  "
		if f.Name == p.XSS.TargetField && f.InBody() == (p.XSS.ValueType == domain.ValueBody) {
			mark = "▶ "
		}
		b.WriteString(mark + f.Label + "\n")
	}
	return b.String()
}
