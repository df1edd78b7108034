package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"archive-relay/internal/archive"
	"archive-relay/internal/batch"
	"archive-relay/internal/destination"
	"archive-relay/internal/logging"
	"archive-relay/internal/model"
	"archive-relay/internal/naming"
	"archive-relay/internal/transfer"
)

type uiMode int

const (
	uiModeBrowse uiMode = iota
	uiModeRename
	uiModeDestination
	uiModeArchive
)

type uiKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Toggle      key.Binding
	Rename      key.Binding
	Duplicate   key.Binding
	Destination key.Binding
	Archive     key.Binding
	Quit        key.Binding
}

func defaultUIKeyMap() uiKeyMap {
	return uiKeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "move")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down/j", "move")),
		Toggle:      key.NewBinding(key.WithKeys(" ", "space", "u"), key.WithHelp("space/u", "upload/pause/resume")),
		Rename:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		Duplicate:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "duplicate")),
		Destination: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "destination")),
		Archive:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "open archive")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k uiKeyMap) hints() string {
	bindings := []key.Binding{k.Toggle, k.Rename, k.Duplicate, k.Destination, k.Archive, k.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " | ")
}

type uiModel struct {
	ctrl        *transfer.Controller
	sched       *teaScheduler
	log         zerolog.Logger
	archivePath string
	dest        destination.Destination
	keys        uiKeyMap

	cursor  int
	width   int
	height  int
	mode    uiMode
	input   textinput.Model
	spinner spinner.Model
	bar     progress.Model
	loading bool

	statusMessage string
	fatalErr      error
}

type archiveLoadedMsg struct {
	path    string
	format  archive.Format
	members []batch.Member
	err     error
}

var (
	uiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	uiMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	uiErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	uiOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	uiPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	uiSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func newUICommand(flags *globalFlags) *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "ui [archive]",
		Short: "interactive batch view: rename, duplicate, upload, pause and resume",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stdinIsTTY() {
				return errors.New("ui requires an interactive terminal (TTY)")
			}
			s, err := loadSettings(flags)
			if err != nil {
				return err
			}
			log, closer, err := s.logger(logging.ModeTUI, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()
			if err := s.resolveDestination(dest, log); err != nil {
				return err
			}

			archivePath := ""
			if len(args) == 1 {
				archivePath = args[0]
			}
			m := newUIModel(s, log, archivePath)
			p := tea.NewProgram(m, tea.WithAltScreen())
			finalModel, err := p.Run()
			if err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "tty") {
					return errors.New("ui requires an interactive terminal (TTY)")
				}
				return err
			}
			if fm, ok := finalModel.(uiModel); ok {
				return fm.fatalErr
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "preselected destination folder (overrides destination.default)")
	return cmd
}

func newUIModel(s settings, log zerolog.Logger, archivePath string) uiModel {
	sched := newTeaScheduler()
	store := batch.NewStore(s.naming)
	ctrl := transfer.NewController(store, sched, transfer.Options{
		DelayPerByte: s.delayPerByte,
		Logger:       &log,
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 1024
	input.Width = 60

	return uiModel{
		ctrl:        ctrl,
		sched:       sched,
		log:         log,
		archivePath: strings.TrimSpace(archivePath),
		dest:        s.destination,
		keys:        defaultUIKeyMap(),
		mode:        uiModeBrowse,
		input:       input,
		spinner:     sp,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
		),
	}
}

func (m uiModel) Init() tea.Cmd {
	if m.archivePath == "" {
		return m.spinner.Tick
	}
	return tea.Batch(m.spinner.Tick, loadArchiveCmd(m.archivePath))
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = clampInt(m.width-8, 20, 120)
		m.bar.Width = clampInt(m.width-30, 20, 60)
		return m, nil
	case timerFiredMsg:
		m.sched.Fire(msg.id)
		return m, m.sched.Drain()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case archiveLoadedMsg:
		return m.applyArchive(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch m.mode {
	case uiModeBrowse:
		return m.updateBrowse(keyMsg)
	default:
		return m.updateInput(keyMsg)
	}
}

func (m uiModel) applyArchive(msg archiveLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	m.cursor = 0
	if msg.err != nil {
		// the batch is replaced by an empty one and stays idle
		_ = m.ctrl.Load(nil)
		m.archivePath = msg.path
		m.statusMessage = "error: " + msg.err.Error()
		m.log.Warn().Err(msg.err).Str("archive", msg.path).Msg("archive rejected")
		return m, m.sched.Drain()
	}
	if err := m.ctrl.Load(msg.members); err != nil {
		m.statusMessage = "error: " + err.Error()
		return m, m.sched.Drain()
	}
	m.archivePath = msg.path
	m.statusMessage = fmt.Sprintf("loaded %d files from %s archive", len(msg.members), msg.format)
	return m, m.sched.Drain()
}

func (m uiModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries := m.ctrl.Snapshot().Entries
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(entries)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Toggle):
		status, err := m.ctrl.Toggle(m.dest.Chosen())
		if err != nil {
			m.statusMessage = "error: " + err.Error()
		} else {
			m.statusMessage = status.Label()
		}
		return m, m.sched.Drain()
	case key.Matches(msg, m.keys.Duplicate):
		if err := m.ctrl.Duplicate(m.cursor); err != nil {
			if !errors.Is(err, naming.ErrIndexOutOfRange) {
				m.statusMessage = "error: " + err.Error()
			}
			return m, nil
		}
		st := m.ctrl.Snapshot()
		m.statusMessage = "added " + st.Entries[len(st.Entries)-1].Filename
		return m, m.sched.Drain()
	case key.Matches(msg, m.keys.Rename):
		if m.cursor < 0 || m.cursor >= len(entries) {
			return m, nil
		}
		return m.openInput(uiModeRename, entries[m.cursor].Filename), nil
	case key.Matches(msg, m.keys.Destination):
		return m.openInput(uiModeDestination, m.dest.Path), nil
	case key.Matches(msg, m.keys.Archive):
		return m.openInput(uiModeArchive, m.archivePath), nil
	}
	return m, nil
}

func (m uiModel) openInput(mode uiMode, value string) uiModel {
	m.mode = mode
	m.statusMessage = ""
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	return m
}

func (m uiModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.mode = uiModeBrowse
		m.input.Blur()
		m.statusMessage = "cancelled"
		return m, nil
	case "enter":
		value := m.input.Value()
		mode := m.mode
		m.mode = uiModeBrowse
		m.input.Blur()
		return m.submitInput(mode, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m uiModel) submitInput(mode uiMode, value string) (tea.Model, tea.Cmd) {
	switch mode {
	case uiModeRename:
		if err := m.ctrl.Rename(m.cursor, value); err != nil && !errors.Is(err, naming.ErrIndexOutOfRange) {
			m.statusMessage = "error: " + err.Error()
			return m, nil
		}
		m.statusMessage = ""
		return m, nil
	case uiModeDestination:
		next, err := destination.Choose(m.dest, value)
		if err != nil {
			m.statusMessage = "error: " + err.Error()
			return m, nil
		}
		m.dest = next
		m.statusMessage = m.dest.Describe()
		return m, nil
	case uiModeArchive:
		path := strings.TrimSpace(value)
		if path == "" {
			m.statusMessage = "cancelled"
			return m, nil
		}
		m.loading = true
		m.statusMessage = "inspecting " + path
		return m, loadArchiveCmd(path)
	}
	return m, nil
}

func (m uiModel) View() string {
	if m.fatalErr != nil {
		return uiErrorStyle.Render("fatal: " + m.fatalErr.Error())
	}
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}

	header := uiTitleStyle.Render("archive-relay") + "\n" + uiMutedStyle.Render(m.keys.hints())
	st := m.ctrl.Snapshot()

	var body string
	if m.width < 90 {
		body = lipgloss.JoinVertical(lipgloss.Left, m.renderEntries(st, m.width), m.renderDetails(st, m.width))
	} else {
		leftW := clampInt(m.width/2, 40, 64)
		rightW := m.width - leftW - 1
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderEntries(st, leftW), m.renderDetails(st, rightW))
	}
	parts := []string{header, body}
	if m.mode != uiModeBrowse {
		parts = append(parts, m.renderInput())
	}
	parts = append(parts, m.renderStatusLine(m.width))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m uiModel) renderEntries(st batch.State, width int) string {
	lines := []string{}
	switch {
	case m.loading:
		lines = append(lines, m.spinner.View()+" inspecting archive...")
	case m.archivePath == "":
		lines = append(lines, uiMutedStyle.Render("No archive selected."))
		lines = append(lines, uiMutedStyle.Render("Press a to open one."))
	case len(st.Entries) == 0:
		lines = append(lines, uiMutedStyle.Render("The archive holds no files."))
	}

	total := len(st.Entries)
	maxRows := clampInt(m.height-12, 4, 30)
	start, end := listWindow(total, m.cursor, maxRows)
	if start > 0 {
		lines = append(lines, uiMutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		e := st.Entries[i]
		mark := " "
		switch {
		case e.Processed:
			mark = uiOKStyle.Render("✓")
		case st.Uploading:
			mark = m.spinner.View()
		}
		text := truncateRunes(fmt.Sprintf("%s  %s", e.Filename, formatBytes(e.SizeBytes)), max(width-8, 10))
		if i == m.cursor {
			text = uiSelStyle.Render(text)
		}
		lines = append(lines, mark+" "+text)
	}
	if end < total {
		lines = append(lines, uiMutedStyle.Render("..."))
	}
	return uiPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m uiModel) renderDetails(st batch.State, width int) string {
	status := st.Status()
	lines := []string{
		"[ " + status.Label() + " ]",
		"",
		kv("archive", defaultIfEmpty(m.archivePath, "(none)")),
		m.dest.Describe(),
		kv("files", fmt.Sprintf("%d/%d", st.ProcessedCount(), len(st.Entries))),
		kv("bytes", fmt.Sprintf("%s / %s", formatBytes(st.ProcessedBytes()), formatBytes(st.TotalBytes()))),
	}
	if status == model.StatusRunning {
		if eta := formatETA(m.sched.Remaining()); eta != "" {
			lines = append(lines, kv("eta", eta))
		}
	}
	for i := range lines {
		lines[i] = wrapOrTrim(lines[i], max(width-6, 12))
	}
	lines = append(lines, "", m.bar.ViewAs(overallFraction(st)))
	return uiPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m uiModel) renderInput() string {
	label := ""
	switch m.mode {
	case uiModeRename:
		label = "New file name"
	case uiModeDestination:
		label = "Destination folder (empty keeps the current one)"
	case uiModeArchive:
		label = "Archive path"
	}
	hint := uiMutedStyle.Render("enter: apply | esc: cancel")
	return uiPanelStyle.Width(max(m.width, 40)).Render(label + "\n" + m.input.View() + "\n" + hint)
}

func (m uiModel) renderStatusLine(width int) string {
	msg := strings.TrimSpace(m.statusMessage)
	if msg == "" {
		msg = "Tip: choose a destination with o, then press space to upload."
	}
	style := uiMutedStyle
	lower := strings.ToLower(msg)
	if strings.HasPrefix(lower, "error:") {
		style = uiErrorStyle
	} else if strings.HasPrefix(lower, "saving to") || strings.HasPrefix(lower, "loaded") || msg == model.StatusDone.Label() {
		style = uiOKStyle
	}
	return style.Width(width).Render(truncateRunes(msg, max(width-2, 10)))
}

// overallFraction weighs progress by bytes, falling back to entry counts
// when every entry is empty.
func overallFraction(st batch.State) float64 {
	if len(st.Entries) == 0 {
		return 0
	}
	if total := st.TotalBytes(); total > 0 {
		return float64(st.ProcessedBytes()) / float64(total)
	}
	return float64(st.ProcessedCount()) / float64(len(st.Entries))
}

func loadArchiveCmd(path string) tea.Cmd {
	return func() tea.Msg {
		members, format, err := archive.InspectFile(path)
		if err != nil {
			return archiveLoadedMsg{path: path, err: err}
		}
		return archiveLoadedMsg{path: path, format: format, members: toBatchMembers(members)}
	}
}
