package main

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/scenario"
	"github.com/jwebster45206/story-graph/pkg/state"
)

const (
	NarratorName = "Narrator"
	maxChoiceKey = 9
)

// line is one entry of the on-screen transcript. A line with a note and no
// text is a system message (a choice taken, a roll, a rewind).
type line struct {
	speaker string
	text    string
	note    string
}

// ConsoleUI is the BubbleTea model that runs the player.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	scenario *scenario.Scenario
	engine   *state.Engine

	storyViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	err           error
	status        string

	transcript   []line
	lastScene    string
	lastDialogue string
	finished     bool

	// Dice roll state
	rolling      bool
	progressTick int

	// History (time travel) modal state
	showHistory   bool
	historyCursor int
}

type choiceResultMsg struct {
	choice scenario.Choice
	err    error
}

type progressTickMsg struct{}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

var titleCaser = cases.Title(language.English)

func NewConsoleUI(s *scenario.Scenario, engine *state.Engine) ConsoleUI {
	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	m := ConsoleUI{
		scenario:      s,
		engine:        engine,
		storyViewport: storyVp,
		metaViewport:  viewport.New(20, 20),
	}
	m.recordPosition()
	return m
}

func (m ConsoleUI) Init() tea.Cmd {
	return nil
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showHistory {
		return m.updateHistoryModal(msg)
	}

	var vpCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit

		case "enter", " ":
			if m.rolling {
				return m, nil
			}
			m.engine.GoToNextDialogue()
			m.recordPosition()
			m.refresh()
			return m, nil

		case "h":
			if n := len(m.engine.History()); n > 0 && !m.rolling {
				m.showHistory = true
				m.historyCursor = n - 1
			}
			return m, nil

		case "y":
			m.copyHistory()
			m.refresh()
			return m, nil
		}

		if len(key) == 1 && key[0] >= '1' && key[0] <= '0'+maxChoiceKey {
			return m.choose(int(key[0] - '1'))
		}

	case choiceResultMsg:
		m.rolling = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			if note := diceNote(msg.choice.DiceCheck, m.engine.DiceState()); note != "" {
				m.transcript = append(m.transcript, line{note: note})
			}
			m.recordPosition()
		}
		m.refresh()
		return m, nil

	case progressTickMsg:
		if m.rolling {
			m.progressTick++
			m.refresh()
			return m, progressTick()
		}
		return m, nil
	}

	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	return m, vpCmd
}

// choose takes the i-th choice of the current dialogue. Dice checks run in
// the background so the roll animation can play.
func (m ConsoleUI) choose(i int) (tea.Model, tea.Cmd) {
	d := m.engine.CurrentDialogue()
	if m.rolling || d == nil || i >= len(d.Choices) {
		return m, nil
	}
	choice := d.Choices[i]
	m.err = nil
	m.status = ""
	m.transcript = append(m.transcript, line{note: "> " + choice.Text})

	if choice.DiceCheck == nil {
		if err := m.engine.ChooseOption(context.Background(), choice); err != nil {
			m.err = err
		}
		m.recordPosition()
		m.refresh()
		return m, nil
	}

	m.rolling = true
	m.progressTick = 0
	m.refresh()
	engine := m.engine
	return m, tea.Batch(func() tea.Msg {
		err := engine.ChooseOption(context.Background(), choice)
		return choiceResultMsg{choice: choice, err: err}
	}, progressTick())
}

// recordPosition appends the current dialogue to the transcript when playback
// has moved, and marks the story finished when it cannot move any more.
func (m *ConsoleUI) recordPosition() {
	scene := m.engine.CurrentScene()
	d := m.engine.CurrentDialogue()
	if scene == nil || d == nil {
		m.finished = true
		return
	}
	if scene.ID == m.lastScene && d.ID == m.lastDialogue {
		m.finished = m.engine.IsAtLastDialogue()
		return
	}
	m.finished = false
	if scene.ID != m.lastScene {
		title := scene.Title
		if title == "" {
			title = scene.ID
		}
		m.transcript = append(m.transcript, line{note: "~ " + title + " ~"})
	}
	m.transcript = append(m.transcript, line{speaker: d.Speaker, text: d.Text})
	m.lastScene, m.lastDialogue = scene.ID, d.ID
}

func (m *ConsoleUI) copyHistory() {
	data, err := json.MarshalIndent(m.engine.History(), "", "  ")
	if err != nil {
		m.err = fmt.Errorf("failed to marshal history: %w", err)
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		m.err = fmt.Errorf("failed to copy history: %w", err)
		return
	}
	m.status = fmt.Sprintf("Copied %d history entries to the clipboard", len(m.engine.History()))
}

func (m *ConsoleUI) resize() {
	storyWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - storyWidth - 6
	m.storyViewport.Width = storyWidth - 2
	m.storyViewport.Height = max(m.height-12, 5)
	m.metaViewport.Width = max(metaWidth-2, 10)
	m.metaViewport.Height = m.height - 2
}

func (m *ConsoleUI) refresh() {
	width := max(m.storyViewport.Width-6, 20)

	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(m.scenario.Name)) + "\n\n")
	for _, l := range m.transcript {
		content.WriteString(formatLine(l, width) + "\n\n")
	}
	if m.rolling {
		content.WriteString(loadingStyle.Render("Rolling the d20...") + "\n")
		content.WriteString(m.renderProgressBar() + "\n")
	}
	if m.finished {
		content.WriteString(titleStyle.Render("The End") + "\n")
	}

	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
	m.metaViewport.SetContent(m.renderMeta())
}

func formatLine(l line, width int) string {
	if l.text == "" {
		return noteStyle.Render(wordwrap.String(l.note, width))
	}
	speaker := l.speaker
	style := speakerStyle
	if speaker == "" {
		speaker = NarratorName
		style = narratorStyle
	}
	prefix := speaker + ": "
	return style.Render(prefix) + wordwrap.String(l.text, max(width-len(prefix), 10))
}

// choiceLabel renders a numbered choice; dice checks show their stat and difficulty.
func choiceLabel(i int, c scenario.Choice) string {
	label := fmt.Sprintf("[%d] %s", i+1, c.Text)
	if dc := c.DiceCheck; dc != nil {
		label += fmt.Sprintf(" (%s DC %d)", statName(dc.Stat), dc.Difficulty)
	}
	return label
}

func diceNote(dc *scenario.DiceCheck, ds state.DiceState) string {
	if dc == nil || ds.LastResult == "" {
		return ""
	}
	return fmt.Sprintf("Rolled %d + %d %s = %d vs %d: %s",
		ds.Natural, ds.LastRoll-ds.Natural, statName(dc.Stat), ds.LastRoll, dc.Difficulty, ds.LastResult)
}

// statName turns a stat key such as "street_smarts" into "Street Smarts".
func statName(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

func renderStats(stats conditionals.Stats) string {
	if len(stats) == 0 {
		return "None\n"
	}
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(stats)) {
		fmt.Fprintf(&b, "• %s: %d\n", statName(k), stats[k])
	}
	return b.String()
}

func (m ConsoleUI) renderMeta() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("PLAYBACK") + "\n\n")

	if scene := m.engine.CurrentScene(); scene != nil {
		content.WriteString("Scene:\n" + scene.ID + "\n\n")
	}
	content.WriteString(fmt.Sprintf("Steps:\n%d taken\n\n", len(m.engine.History())))

	content.WriteString("Stats:\n")
	content.WriteString(renderStats(m.engine.Stats()))
	content.WriteString("\n")

	if ds := m.engine.DiceState(); ds.LastResult != "" {
		content.WriteString(fmt.Sprintf("Last roll:\n%d (%s)\n\n", ds.LastRoll, ds.LastResult))
	}

	content.WriteString("Keys:\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• Enter: Continue\n")
	content.WriteString("• h: History\n")
	content.WriteString("• y: Copy history\n")
	content.WriteString("• q: Quit\n")
	return content.String()
}

func (m ConsoleUI) renderChoices() string {
	d := m.engine.CurrentDialogue()
	if d == nil || !d.HasChoices() {
		if m.finished {
			return promptStyle.Render("Press q to quit, or h to rewind")
		}
		return promptStyle.Render("Press Enter to continue")
	}
	var b strings.Builder
	for i, c := range d.Choices {
		if i >= maxChoiceKey {
			break
		}
		b.WriteString(choiceStyle.Render(choiceLabel(i, c)) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m ConsoleUI) updateHistoryModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc", "h", "q":
			m.showHistory = false
		case "up", "k":
			if m.historyCursor > 0 {
				m.historyCursor--
			}
		case "down", "j":
			if m.historyCursor < len(m.engine.History())-1 {
				m.historyCursor++
			}
		case "enter":
			m.showHistory = false
			if err := m.engine.JumpToHistoryIndex(m.historyCursor); err != nil {
				m.err = err
			} else {
				m.transcript = append(m.transcript, line{note: fmt.Sprintf("Rewound to step %d", m.historyCursor+1)})
				m.lastScene, m.lastDialogue = "", ""
				m.recordPosition()
			}
			m.refresh()
		}
	}
	return m, nil
}

func (m ConsoleUI) renderHistoryModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Time Travel"))
	content.WriteString("\n\n")

	for i, h := range m.engine.History() {
		item := fmt.Sprintf("%d. %s / %s: %s", i+1, h.SceneID, h.DialogueID, m.choiceText(h))
		if i == m.historyCursor {
			content.WriteString(modalSelectedItemStyle.Render("▶ " + item))
		} else {
			content.WriteString(modalItemStyle.Render("  " + item))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to rewind, Esc to close"))

	modal := modalStyle.Width(min(70, max(m.width-4, 20))).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

// choiceText looks up the text of the choice a history entry records.
func (m ConsoleUI) choiceText(h state.HistoryEntry) string {
	scene, err := m.scenario.Scene(h.SceneID)
	if err != nil {
		return h.ChoiceID
	}
	if d := scene.Dialogue(h.DialogueID); d != nil {
		for _, c := range d.Choices {
			if c.ID == h.ChoiceID {
				return c.Text
			}
		}
	}
	return h.ChoiceID
}

func (m ConsoleUI) View() string {
	if m.showHistory {
		return m.renderHistoryModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - storyWidth - 6

	footer := m.renderChoices()
	if m.err != nil {
		footer += "\n" + errorStyle.Render("Error: "+m.err.Error())
	} else if m.status != "" {
		footer += "\n" + promptStyle.Render(m.status)
	}

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(storyWidth-4, 1))),
			footer,
		),
	)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(m.metaViewport.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}

// renderProgressBar draws the dice roll animation.
func (m ConsoleUI) renderProgressBar() string {
	usable := min(max(m.storyViewport.Width-6, 10), 40)

	const totalFrames = 20
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := range usable {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
