package visual

import "strings"

var ipaSymbols = map[string]string{
	// vowels
	"aa": "ɑ", "ae": "æ", "ah": "ʌ", "ao": "ɔ",
	"aw": "aʊ", "ax": "ə", "ay": "aɪ", "eh": "ɛ",
	"er": "ɝ", "ey": "eɪ", "ih": "ɪ", "iy": "i",
	"ow": "oʊ", "oy": "ɔɪ", "uh": "ʊ", "uw": "u",
	// consonants
	"b": "b", "ch": "tʃ", "d": "d", "dh": "ð",
	"f": "f", "g": "g", "hh": "h", "jh": "dʒ",
	"k": "k", "l": "l", "m": "m", "n": "n",
	"ng": "ŋ", "p": "p", "r": "r", "s": "s",
	"sh": "ʃ", "t": "t", "th": "θ", "v": "v",
	"w": "w", "y": "j", "z": "z", "zh": "ʒ",
	// flaps and syllabics
	"dx": "ɾ", "nx": "ɾ̃", "el": "ḷ", "em": "m̩", "en": "n̩",
}

// ToIPA converts a space-separated SAPI phoneme string to IPA. Unknown
// symbols pass through unchanged.
func ToIPA(phonemes string) string {
	fields := strings.Fields(phonemes)
	for i, p := range fields {
		if s, ok := ipaSymbols[p]; ok {
			fields[i] = s
		}
	}
	ipa := strings.Join(fields, " ")
	return strings.NewReplacer("ˈ ", "ˈ", "ˌ ", "ˌ").Replace(ipa)
}
