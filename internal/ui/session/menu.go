package session

import (
	"fmt"
	"path/filepath"
)

// Menu modes.
const (
	MenuMain = "main"
	MenuSlot = "slot"
	MenuROM  = "rom"
)

var mainItems = []string{
	"Save state",
	"Load state",
	"Select slot",
	"Switch ROM",
	"Reset",
	"Close",
}

// Menu is the overlay menu. The window maps keys onto its methods.
type Menu struct {
	s *Session

	Open  bool
	Mode  string
	Index int

	ROMList []string
	ROMOff  int // first visible ROM row
}

// Toggle opens the main menu or closes any menu.
func (mn *Menu) Toggle() {
	mn.Open = !mn.Open
	mn.Mode = MenuMain
	mn.Index = 0
}

func (mn *Menu) count() int {
	switch mn.Mode {
	case MenuSlot:
		return Slots
	case MenuROM:
		return len(mn.ROMList)
	}
	return len(mainItems)
}

func (mn *Menu) Up() {
	if mn.Index > 0 {
		mn.Index--
	}
}

func (mn *Menu) Down() {
	if mn.Index < mn.count()-1 {
		mn.Index++
	}
}

// Back leaves a submenu, or closes the main menu.
func (mn *Menu) Back() {
	if mn.Mode == MenuMain {
		mn.Open = false
		return
	}
	mn.Mode = MenuMain
	mn.Index = 0
}

// Enter activates the selected item.
func (mn *Menu) Enter() {
	s := mn.s
	switch mn.Mode {
	case MenuMain:
		switch mn.Index {
		case 0:
			_ = s.SaveSlot()
		case 1:
			_ = s.LoadSlot()
		case 2:
			mn.Mode = MenuSlot
			mn.Index = s.Slot
		case 3:
			mn.ROMList = s.ROMs()
			mn.ROMOff = 0
			mn.Mode = MenuROM
			mn.Index = 0
		case 4:
			s.Reset()
			mn.Open = false
		case 5:
			mn.Open = false
		}
	case MenuSlot:
		s.SelectSlot(mn.Index)
		mn.Mode = MenuMain
		mn.Index = 2
	case MenuROM:
		if len(mn.ROMList) == 0 {
			mn.Back()
			return
		}
		if err := s.LoadROM(mn.ROMList[mn.Index]); err == nil {
			mn.Open = false
		}
	}
}

// Lines renders the current menu as text, keeping the selection within
// rows visible lines. The selected line is prefixed with "> ".
func (mn *Menu) Lines(rows int) []string {
	s := mn.s
	var title string
	var items []string
	switch mn.Mode {
	case MenuSlot:
		title = "Select slot:"
		for i := 0; i < Slots; i++ {
			state := ""
			if !s.SlotUsed(i) {
				state = " [empty]"
			}
			items = append(items, fmt.Sprintf("%d%s", i+1, state))
		}
	case MenuROM:
		title = "Select ROM (Enter to load, Backspace to return):"
		for _, p := range mn.ROMList {
			items = append(items, filepath.Base(p))
		}
		if len(items) == 0 {
			return []string{title, "  No ROMs found in " + s.cfg.ROMsDir}
		}
	default:
		title = "Menu:"
		for i, it := range mainItems {
			switch i {
			case 0, 1:
				it = fmt.Sprintf("%s (slot %d)", it, s.Slot+1)
			}
			items = append(items, it)
		}
	}

	if rows < 1 {
		rows = 1
	}
	off := 0
	if mn.Mode == MenuROM {
		if mn.Index < mn.ROMOff {
			mn.ROMOff = mn.Index
		}
		if mn.Index >= mn.ROMOff+rows {
			mn.ROMOff = mn.Index - rows + 1
		}
		off = mn.ROMOff
	}
	end := min(off+rows, len(items))

	out := []string{title}
	for i := off; i < end; i++ {
		prefix := "  "
		if i == mn.Index {
			prefix = "> "
		}
		out = append(out, prefix+items[i])
	}
	return out
}
