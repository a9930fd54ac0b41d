package ui

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

const bannerText = `
     ██╗ ██████╗ ██████╗ ███████╗██╗     ███████╗██╗   ██╗████████╗██╗  ██╗
     ██║██╔═══██╗██╔══██╗██╔════╝██║     ██╔════╝██║   ██║╚══██╔══╝██║  ██║
     ██║██║   ██║██████╔╝███████╗██║     █████╗  ██║   ██║   ██║   ███████║
██   ██║██║   ██║██╔══██╗╚════██║██║     ██╔══╝  ██║   ██║   ██║   ██╔══██║
╚█████╔╝╚██████╔╝██████╔╝███████║███████╗███████╗╚██████╔╝   ██║   ██║  ██║
 ╚════╝  ╚═════╝ ╚═════╝ ╚══════╝╚══════╝╚══════╝ ╚═════╝    ╚═╝   ╚═╝  ╚═╝
 uzt.lt listings, salaries and matches
`

// ColorizeText fades the text between two random colors
func ColorizeText(text string) string {
	random := rand.New(rand.NewSource(time.Now().UnixNano()))

	startColor := pterm.NewRGB(uint8(random.Intn(256)), uint8(random.Intn(256)), uint8(random.Intn(256)))
	endColor := pterm.NewRGB(uint8(random.Intn(256)), uint8(random.Intn(256)), uint8(random.Intn(256)))

	chars := strings.Split(text, "")
	half := len(chars) / 2
	if half == 0 {
		half = 1
	}

	var sb strings.Builder
	for i, ch := range chars {
		sb.WriteString(startColor.Fade(0, float32(len(chars)), float32(i%half), endColor).Sprint(ch))
	}
	return sb.String()
}

// PrintBanner displays the application banner
func PrintBanner(silence bool) {
	if !silence {
		fmt.Println(ColorizeText(bannerText))
	}
}

// FormatURL formats a URL, optionally as a clickable terminal hyperlink using OSC 8 escape sequence
func FormatURL(url string, useHyperlink bool) string {
	if !useHyperlink {
		return url
	}
	return fmt.Sprintf("\033]8;;%s\a%s\033]8;;\a", url, "Skelbimas")
}
