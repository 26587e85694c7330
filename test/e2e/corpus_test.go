package e2e

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
)

func TestBuildCorpus_size(t *testing.T) {
	c := BuildCorpus([]string{"S", "V"}, []int{2021, 2022, 2023}, 4)
	if got, want := len(c.Speeches), 2*3*4; got != want {
		t.Errorf("speeches = %d, want %d", got, want)
	}
}

func TestBuildCorpus_mentionsMatchText(t *testing.T) {
	c := BuildCorpus([]string{"S", "M", "V"}, []int{2020, 2021, 2022}, 5)
	counted := make(map[string]map[int]int)
	for _, s := range c.Speeches {
		if counted[s.Party] == nil {
			counted[s.Party] = make(map[int]int)
		}
		text := strings.ToLower(s.Heading + " " + s.Text + " " + s.Speaker)
		if strings.Contains(text, c.Term) {
			year, err := strconv.Atoi(s.Date[:4])
			if err != nil {
				t.Fatalf("bad date %q", s.Date)
			}
			counted[s.Party][year]++
		}
	}
	for party, years := range c.Mentions {
		for year, want := range years {
			if got := counted[party][year]; got != want {
				t.Errorf("%s %d: counted %d mentions, corpus says %d", party, year, got, want)
			}
		}
	}
}

func TestCorpus_JSONL(t *testing.T) {
	c := BuildCorpus([]string{"KD"}, []int{2019}, 3)
	data, err := c.JSONL()
	if err != nil {
		t.Fatal(err)
	}
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	for _, key := range []string{`"dok_id"`, `"talare"`, `"parti":"KD"`, `"datum":"2019-`} {
		if !bytes.Contains(lines[0], []byte(key)) {
			t.Errorf("line %s lacks %s", lines[0], key)
		}
	}
}

func TestCorpus_ExpectedCount(t *testing.T) {
	c := &Corpus{Mentions: map[string]map[int]int{"V": {2020: 1, 2021: 2, 2022: 3}}}
	tests := []struct {
		start, end, want int
	}{
		{2020, 2022, 6},
		{2021, 2021, 2},
		{2023, 2024, 0},
	}
	for _, tt := range tests {
		if got := c.ExpectedCount("V", tt.start, tt.end); got != tt.want {
			t.Errorf("ExpectedCount(%d, %d) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
	if got := c.ExpectedCount("S", 2020, 2022); got != 0 {
		t.Errorf("unknown party count = %d", got)
	}
}
