package visual

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/okian/phonoecho/internal/domain/assessment"
)

var syllableTable = template.Must(template.New("syllables").Parse(
	`<table class="syllables">` +
		`<tr><th>Word</th><th>Pronunciation</th><th>Score</th></tr>` +
		`{{range .}}<tr><td>{{.Word}}</td><td>` +
		`{{if .Phonemes}}{{range .Phonemes}}<span style="color: {{.Color}}">{{.IPA}}</span>{{end}}{{else}}{{.Word}}{{end}}` +
		`</td><td style="background-color: {{.Color}}">{{.Score}}</td></tr>{{end}}` +
		`</table>`))

type phonemeCell struct {
	IPA   string
	Color template.CSS
}

type tableRow struct {
	Word     string
	Score    string
	Color    template.CSS
	Phonemes []phonemeCell
}

// SyllableTable renders the per-word phoneme breakdown of best as an HTML
// table. Word and phoneme text is escaped.
func SyllableTable(best assessment.NBest) (template.HTML, error) {
	rows := make([]tableRow, 0, len(best.Words))
	for _, w := range best.Words {
		score := w.PronunciationAssessment.AccuracyScore
		row := tableRow{
			Word:  w.Word,
			Score: fmt.Sprintf("%.2f", score),
			Color: template.CSS(Color(score)),
		}
		for _, p := range w.Phonemes {
			row.Phonemes = append(row.Phonemes, phonemeCell{
				IPA:   ToIPA(p.Phoneme),
				Color: template.CSS(Color(p.PronunciationAssessment.AccuracyScore)),
			})
		}
		rows = append(rows, row)
	}
	var buf bytes.Buffer
	if err := syllableTable.Execute(&buf, rows); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec // output of html/template
}
