package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mkeppel/habitquest-tui/internal/engine"
	"github.com/mkeppel/habitquest-tui/internal/gemini"
	"github.com/mkeppel/habitquest-tui/internal/store"
	"github.com/mkeppel/habitquest-tui/internal/util"
)

const (
	viewGrid      = "grid"
	viewAnalytics = "analytics"
	viewAnimator  = "animator"
	viewHelp      = "help"
)

// input modes for the bottom-bar prompt; transitions only ever receive
// already-validated values collected here.
const (
	inputNone          = ""
	inputHabitName     = "habit_name"
	inputHabitGoal     = "habit_goal"
	inputDeleteConfirm = "delete_confirm"
	inputImagePath     = "image_path"
	inputVideoPrompt   = "video_prompt"
	inputAPIKey        = "api_key"
)

type insightMsg struct {
	text string
}

type videoMsg struct {
	path string
	err  error
}

type model struct {
	ctx   context.Context
	cfg   util.Config
	state engine.HabitState
	repo  *store.StateRepo
	keys  *keyStore
	log   *zap.Logger

	// the tracked month is always the current calendar month
	year  int
	month time.Month

	view   string
	status string

	// grid cursor
	cursorDay   int // 0-based
	cursorHabit int

	// bottom-bar prompt
	inputMode   string
	inputBuf    string
	pendingName string
	deleteID    string

	// AI insight
	insight        string
	insightLoading bool

	// animator
	imagePath    string
	videoPrompt  string
	aspectRatio  string
	videoLoading bool
	videoPath    string
	videoErr     string

	theme  string
	styles struct {
		title  lipgloss.Style
		muted  lipgloss.Style
		accent lipgloss.Style
		done   lipgloss.Style
		cursor lipgloss.Style
		danger lipgloss.Style
		box    lipgloss.Style
	}

	width  int
	height int
}

func initialModel(ctx context.Context, repo *store.StateRepo, state engine.HabitState, cfg util.Config, log *zap.Logger) model {
	now := time.Now()
	m := model{
		ctx:         ctx,
		cfg:         cfg,
		state:       state,
		repo:        repo,
		keys:        newKeyStore(cfg.APIKey),
		log:         log,
		year:        now.Year(),
		month:       now.Month(),
		view:        viewGrid,
		aspectRatio: "16:9",
		theme:       cfg.Theme,
	}
	m.applyTheme()
	return m
}

func (m *model) applyTheme() {
	p := paletteFor(m.theme)
	m.styles.title = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	m.styles.muted = lipgloss.NewStyle().Foreground(p.Muted)
	m.styles.accent = lipgloss.NewStyle().Foreground(p.Accent)
	m.styles.done = lipgloss.NewStyle().Foreground(p.Success)
	m.styles.cursor = lipgloss.NewStyle().Reverse(true)
	m.styles.danger = lipgloss.NewStyle().Foreground(p.Danger)
	m.styles.box = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.Border).Padding(0, 1)
}

// persist mirrors the in-memory state to storage after a transition. Every
// transition is followed by exactly one wholesale write.
func (m *model) persist() {
	if err := m.repo.Save(m.ctx, m.state); err != nil {
		m.status = "save failed: " + err.Error()
		m.log.Error("persist failed", zap.Error(err))
		return
	}
	m.status = ""
}

// tea.Model implementation ---------------------------------------------------

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case insightMsg:
		m.insightLoading = false
		m.insight = msg.text
		return m, nil
	case videoMsg:
		m.videoLoading = false
		if msg.err != nil {
			m.applyVideoFailure(msg.err)
			return m, nil
		}
		m.videoErr = ""
		m.videoPath = msg.path
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// applyVideoFailure maps the client's failure taxonomy onto the messages the
// animator shows, and opens the key prompt on a credential failure.
func (m *model) applyVideoFailure(err error) {
	m.keys.ConsumePending()
	switch {
	case errors.Is(err, gemini.ErrInvalidKey):
		m.videoErr = "API key issue. Please re-select your key."
		m.inputMode = inputAPIKey
		m.inputBuf = ""
	case errors.Is(err, gemini.ErrTimedOut):
		m.videoErr = "Generation timed out. Please try again."
	default:
		m.videoErr = "Generation failed. Please try again."
	}
	m.log.Warn("video generation failed", zap.Error(err))
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if m.inputMode != inputNone {
		return m.handleInputKey(k)
	}
	// global keys
	switch k {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.cyclePrimaryViews()
		return m, nil
	case "?":
		if m.view == viewHelp {
			m.view = viewGrid
		} else {
			m.view = viewHelp
		}
		return m, nil
	case "t":
		m.theme = nextThemeName(m.theme)
		m.applyTheme()
		return m, nil
	case "i":
		if !m.insightLoading {
			m.insightLoading = true
			return m, m.fetchInsightCmd()
		}
		return m, nil
	case "x":
		m.insight = ""
		return m, nil
	}
	switch m.view {
	case viewGrid:
		return m.handleGridKey(k)
	case viewAnimator:
		return m.handleAnimatorKey(k)
	case viewHelp:
		if k == "esc" {
			m.view = viewGrid
		}
	}
	return m, nil
}

func (m model) handleGridKey(k string) (tea.Model, tea.Cmd) {
	days := engine.DaysInMonth(m.year, m.month)
	switch k {
	case "left", "h":
		if m.cursorDay > 0 {
			m.cursorDay--
		}
	case "right", "l":
		if m.cursorDay < days-1 {
			m.cursorDay++
		}
	case "up", "k":
		if m.cursorHabit > 0 {
			m.cursorHabit--
		}
	case "down", "j":
		if m.cursorHabit < len(m.state.Habits)-1 {
			m.cursorHabit++
		}
	case " ", "enter":
		if m.cursorHabit < len(m.state.Habits) {
			date := engine.DateKey(m.year, m.month, m.cursorDay+1)
			m.state = engine.ToggleCompletion(m.state, date, m.state.Habits[m.cursorHabit].ID)
			m.persist()
		}
	case "a":
		m.inputMode = inputHabitName
		m.inputBuf = ""
	case "d":
		if m.cursorHabit < len(m.state.Habits) {
			m.deleteID = m.state.Habits[m.cursorHabit].ID
			m.inputMode = inputDeleteConfirm
			m.inputBuf = ""
		}
	}
	return m, nil
}

func (m model) handleAnimatorKey(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "u":
		m.inputMode = inputImagePath
		m.inputBuf = m.imagePath
	case "p":
		m.inputMode = inputVideoPrompt
		m.inputBuf = m.videoPrompt
	case "r":
		if m.aspectRatio == "16:9" {
			m.aspectRatio = "9:16"
		} else {
			m.aspectRatio = "16:9"
		}
	case "g":
		// one invocation at a time; re-submission stays disabled while a
		// job is in flight
		if m.videoLoading || m.imagePath == "" {
			return m, nil
		}
		m.videoLoading = true
		m.videoErr = ""
		m.videoPath = ""
		return m, m.generateVideoCmd()
	}
	return m, nil
}

// handleInputKey edits the bottom-bar prompt. Esc cancels, enter commits.
func (m model) handleInputKey(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "esc":
		m.inputMode = inputNone
		m.inputBuf = ""
		m.pendingName = ""
		m.deleteID = ""
		return m, nil
	case "backspace":
		if len(m.inputBuf) > 0 {
			m.inputBuf = m.inputBuf[:len(m.inputBuf)-1]
		}
		return m, nil
	case "enter":
		return m.commitInput()
	}
	if isRuneInput(k) {
		m.inputBuf += k
	}
	return m, nil
}

func (m model) commitInput() (tea.Model, tea.Cmd) {
	mode := m.inputMode
	value := strings.TrimSpace(m.inputBuf)
	m.inputMode = inputNone
	m.inputBuf = ""
	switch mode {
	case inputHabitName:
		// blank name cancels the add, matching the prompt contract
		if value == "" {
			return m, nil
		}
		m.pendingName = value
		m.inputMode = inputHabitGoal
	case inputHabitGoal:
		goal, err := strconv.Atoi(value)
		if err != nil || goal < 0 {
			goal = engine.DefaultGoal
		}
		m.state = engine.AddHabit(m.state, time.Now(), m.pendingName, goal, "")
		m.pendingName = ""
		m.persist()
	case inputDeleteConfirm:
		// deletion must be confirmed, never silent
		if strings.EqualFold(value, "y") || strings.EqualFold(value, "yes") {
			m.state = engine.DeleteHabit(m.state, m.deleteID)
			if m.cursorHabit >= len(m.state.Habits) && m.cursorHabit > 0 {
				m.cursorHabit--
			}
			m.persist()
		}
		m.deleteID = ""
	case inputImagePath:
		m.imagePath = value
	case inputVideoPrompt:
		m.videoPrompt = value
	case inputAPIKey:
		if value != "" {
			m.keys.Set(value)
			m.videoErr = ""
		}
	}
	return m, nil
}

func (m *model) cyclePrimaryViews() {
	order := []string{viewGrid, viewAnalytics, viewAnimator}
	cur := 0
	for i, v := range order {
		if v == m.view {
			cur = i
			break
		}
	}
	m.view = order[(cur+1)%len(order)]
}

// Commands -------------------------------------------------------------------

func (m *model) fetchInsightCmd() tea.Cmd {
	sums := engine.ComputeSummaries(m.state, m.year, m.month)
	summary := gemini.SummaryLine(sums)
	keys, log, ctx := m.keys, m.log, m.ctx
	return func() tea.Msg {
		client := gemini.NewClient(keys.Get(), log)
		text, err := client.GenerateMotivation(ctx, summary)
		if err != nil {
			// insight unavailable: fixed fallback, never blocks anything
			log.Warn("insight unavailable", zap.Error(err))
			return insightMsg{text: gemini.FallbackInsight}
		}
		return insightMsg{text: text}
	}
}

func (m *model) generateVideoCmd() tea.Cmd {
	imagePath := m.imagePath
	prompt := m.videoPrompt
	aspect := m.aspectRatio
	keys, log, ctx, cfg := m.keys, m.log, m.ctx, m.cfg
	return func() tea.Msg {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return videoMsg{err: errors.Wrap(err, "read image")}
		}
		client := gemini.NewClient(keys.Get(), log)
		gen := gemini.NewVideoGenerator(client, keys,
			time.Duration(cfg.PollSecs)*time.Second, cfg.MaxPolls)
		video, err := gen.Generate(ctx, gemini.VideoRequest{
			ImageBytes:  data,
			MIMEType:    mimeForPath(imagePath),
			Prompt:      prompt,
			AspectRatio: aspect,
		})
		if err != nil {
			return videoMsg{err: err}
		}
		dir := filepath.Join(cfg.DataDir, "videos")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return videoMsg{err: err}
		}
		path := filepath.Join(dir, fmt.Sprintf("celebration_%s.mp4", uuid.New().String()))
		if err := os.WriteFile(path, video, 0o600); err != nil {
			return videoMsg{err: err}
		}
		return videoMsg{path: path}
	}
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// Rendering ------------------------------------------------------------------

func (m model) View() string {
	var body string
	switch m.view {
	case viewAnalytics:
		body = m.renderAnalytics()
	case viewAnimator:
		body = m.renderAnimator()
	case viewHelp:
		body = m.renderHelp()
	default:
		body = m.renderGrid()
	}
	parts := []string{m.renderTopBar()}
	if m.insightLoading {
		parts = append(parts, m.styles.accent.Render("✦ Generating insight..."))
	} else if m.insight != "" {
		parts = append(parts, m.renderInsight())
	}
	parts = append(parts, body, m.renderBottomBar())
	return strings.Join(parts, "\n")
}

func (m model) renderTopBar() string {
	left := "HABITQUEST"
	monthLabel := fmt.Sprintf("%s %d", strings.ToUpper(m.month.String()), m.year)
	totals := engine.ComputeMonthTotals(m.state, m.year, m.month)
	right := fmt.Sprintf("%s • done %d • %d%%", monthLabel, totals.Completed, totals.Progress)
	w := m.width
	if w <= 0 {
		w = 100
	}
	gap := w - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return m.styles.title.Render(left + strings.Repeat(" ", gap) + right)
}

func (m model) renderInsight() string {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(76))
	text := m.insight
	if err == nil {
		if rendered, rerr := renderer.Render(m.insight); rerr == nil {
			text = strings.TrimSpace(rendered)
		}
	}
	return m.styles.box.Render("AI INSIGHT ([x] dismiss)\n" + text)
}

func (m model) renderGrid() string {
	days := engine.DaysInMonth(m.year, m.month)
	var b strings.Builder

	// day header
	b.WriteString(pad("HABIT", nameColWidth))
	for d := 1; d <= days; d++ {
		cell := fmt.Sprintf("%3d", d)
		if d-1 == m.cursorDay {
			cell = m.styles.accent.Render(cell)
		}
		b.WriteString(cell)
	}
	b.WriteString("\n")

	if len(m.state.Habits) == 0 {
		b.WriteString(m.styles.muted.Render("(no habits yet — press [a] to add one)") + "\n")
	}
	for hi, h := range m.state.Habits {
		name := pad(h.Name, nameColWidth)
		if hi == m.cursorHabit {
			name = m.styles.accent.Render(name)
		}
		b.WriteString(name)
		for d := 1; d <= days; d++ {
			date := engine.DateKey(m.year, m.month, d)
			mark := "  ·"
			if m.state.Completed(date, h.ID) {
				mark = "  ✓"
			}
			switch {
			case hi == m.cursorHabit && d-1 == m.cursorDay:
				mark = m.styles.cursor.Render(mark)
			case strings.HasSuffix(mark, "✓"):
				mark = m.styles.done.Render(mark)
			default:
				mark = m.styles.muted.Render(mark)
			}
			b.WriteString(mark)
		}
		b.WriteString("\n")
	}

	// daily totals footer
	counts := engine.DailyCounts(m.state, m.year, m.month)
	b.WriteString(m.styles.muted.Render(pad("PROGRESS (DAILY)", nameColWidth)))
	for _, c := range counts {
		if c > 0 {
			b.WriteString(m.styles.accent.Render(fmt.Sprintf("%3d", c)))
		} else {
			b.WriteString("   ")
		}
	}
	b.WriteString("\n")
	return b.String()
}

const nameColWidth = 22

func (m model) renderAnalytics() string {
	sums := engine.ComputeSummaries(m.state, m.year, m.month)
	var b strings.Builder
	b.WriteString(m.styles.title.Render("PERFORMANCE SUMMARY") + "\n\n")
	b.WriteString(pad("HABIT", nameColWidth))
	b.WriteString(fmt.Sprintf("%6s %7s %10s  %s\n", "GOAL", "ACTUAL", "PROGRESS", ""))
	if len(sums) == 0 {
		b.WriteString(m.styles.muted.Render("No habits added yet") + "\n")
	}
	for _, s := range sums {
		b.WriteString(pad(s.Name, nameColWidth))
		b.WriteString(fmt.Sprintf("%6d %7d %9d%%  %s\n", s.Goal, s.Actual, int(s.Progress+0.5), m.bar(s.Progress)))
	}
	overall := engine.OverallProgress(sums)
	b.WriteString("\n")
	b.WriteString(m.styles.accent.Render(fmt.Sprintf("OVERALL COMPLETION: %d%%", int(overall+0.5))) + "\n")

	b.WriteString("\n" + m.styles.title.Render("MONTHLY TARGETS") + "\n")
	for _, target := range m.state.MonthlyTargets {
		b.WriteString("  ○ " + target + "\n")
	}
	// padded to a fixed visual row count, like the printed tracker sheet
	for i := len(m.state.MonthlyTargets); i < 10; i++ {
		b.WriteString(m.styles.muted.Render("  ..................................................") + "\n")
	}
	return b.String()
}

func (m model) renderAnimator() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("GOAL CELEBRATION — VEO ANIMATOR") + "\n\n")
	b.WriteString("Upload a photo of your goal and let Veo bring it to life.\n\n")
	image := m.imagePath
	if image == "" {
		image = m.styles.muted.Render("(none — press [u] to set an image path)")
	}
	prompt := m.videoPrompt
	if prompt == "" {
		prompt = m.styles.muted.Render("(blank — the default celebration prompt will be used)")
	}
	b.WriteString("  [u] Image:  " + image + "\n")
	b.WriteString("  [p] Prompt: " + prompt + "\n")
	b.WriteString("  [r] Aspect: " + m.aspectRatio + "\n\n")
	switch {
	case m.videoLoading:
		b.WriteString(m.styles.accent.Render("  ✦ Painting with light... generation can take 1-2 minutes.") + "\n")
	case m.videoErr != "":
		b.WriteString(m.styles.danger.Render("  ! "+m.videoErr) + "\n")
	case m.videoPath != "":
		b.WriteString(m.styles.done.Render("  ✓ Video saved: "+m.videoPath) + "\n")
	default:
		b.WriteString(m.styles.muted.Render("  [g] generate (needs an image path)") + "\n")
	}
	return b.String()
}

func (m model) renderHelp() string {
	return m.styles.box.Render("HABITQUEST — HELP\n\n" +
		"Track habits on the month grid; your data lives in your own database,\n" +
		"mirrored after every change.\n\n" +
		"Grid: arrows/hjkl move • space/enter toggle • [a] add • [d] delete (confirmed)\n" +
		"Views: [tab] cycle grid/analytics/animator • [?] help • [t] theme\n" +
		"AI: [i] insight • [x] dismiss • animator [u] image [p] prompt [r] aspect [g] generate\n" +
		"[q] quit")
}

func (m model) renderBottomBar() string {
	if m.inputMode != inputNone {
		label := map[string]string{
			inputHabitName:     "Enter habit name (esc cancels)",
			inputHabitGoal:     "Monthly goal (days), blank/invalid = 31",
			inputDeleteConfirm: "Delete this habit and all history? (y/N)",
			inputImagePath:     "Path to reference image",
			inputVideoPrompt:   "Animation prompt (blank = default)",
			inputAPIKey:        "Paste Gemini API key",
		}[m.inputMode]
		buf := m.inputBuf
		if m.inputMode == inputAPIKey {
			buf = strings.Repeat("*", len(buf))
		}
		return m.styles.accent.Render(label+"> ") + buf
	}
	line := "[tab] views  [a]dd  [d]elete  [i]nsight  [?] help  [q]uit"
	if m.status != "" {
		line += "  " + m.styles.danger.Render(m.status)
	}
	return m.styles.muted.Render(line)
}

func (m model) bar(progress float64) string {
	width := 10
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}
	fill := int(progress/100*float64(width) + 0.5)
	return strings.Repeat("█", fill) + strings.Repeat("·", width-fill)
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		r = append(r[:width-1], '…')
	}
	return string(r) + strings.Repeat(" ", width-len(r))
}

func isRuneInput(s string) bool {
	runes := []rune(s)
	return len(runes) == 1 && runes[0] >= 32 && runes[0] < 127
}
