package gamedata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// ParseColor accepts "#RRGGBB", "RRGGBB" or a color name such as "red".
func ParseColor(s string) (tcell.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := tcell.ColorNames[s]; ok {
		return c, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return tcell.ColorDefault, fmt.Errorf("color %q: want #RRGGBB or a color name", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return tcell.ColorDefault, fmt.Errorf("color %q: %w", s, err)
	}
	return tcell.NewHexColor(int32(v)), nil
}
