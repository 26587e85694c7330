package answer

import (
	"fmt"
	"strings"
)

// Mode selects the first instruction given to the model.
type Mode int

const (
	ModeDebate Mode = iota
	ModeProgram
	ModeStatistics
)

var modeInstructions = map[Mode]string{
	ModeStatistics: "1. Analysera statistiken och förklara vilket/vilka partier som dominerar debatten i frågan.",
	ModeProgram:    "1. BÖRJA med officiell linje (från Partiprogram) kopplat till frågan.",
	ModeDebate:     "1. Fokusera på debatterna och vad som faktiskt sagts i kammaren.",
}

// SystemPrompt builds the analyst instruction for mode with the political
// background appended.
func SystemPrompt(mode Mode, background string) string {
	var b strings.Builder
	b.WriteString("Du är en politisk analytiker. Svara ENDAST baserat på den bifogade datan.\n")
	b.WriteString("Om datan är statistik: Presentera siffrorna tydligt. Statistiken baseras på exakta ordträffar i anföranden. ")
	b.WriteString("Om ett parti har 0 träffar betyder det att ordet inte nämnts alls under perioden.\n")
	b.WriteString("Om datan är text: Gör en historisk och källkritisk analys.\n\n")
	b.WriteString("INSTRUKTIONER:\n")
	b.WriteString(modeInstructions[mode])
	b.WriteString("\n2. Var konkret och källkritisk.\n")
	b.WriteString("3. Avsluta med en kort sammanfattning.\n")
	if background = strings.TrimSpace(background); background != "" {
		b.WriteString("\n")
		b.WriteString(background)
		b.WriteString("\n")
	}
	return b.String()
}

// UserPrompt frames the question and the bounded data payload.
func UserPrompt(years, question, data string) string {
	return fmt.Sprintf("TIDSPERIODER I DATAN: %s\nANVÄNDARENS FRÅGA: %q\nTILLGÄNGLIG DATA:\n%s", years, question, data)
}
