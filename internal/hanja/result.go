package hanja

// FallbackMessage is what user-facing surfaces show for an unchanged result.
const FallbackMessage = "변환할 수 없습니다."

// Result is the outcome of a conversion: either converted text or an explicit
// unchanged signal. The zero value is unchanged.
type Result struct {
	text      string
	converted bool
}

func Converted(text string) Result {
	return Result{text: text, converted: true}
}

func Unchanged() Result {
	return Result{}
}

// Value returns the converted text and true, or "" and false.
func (r Result) Value() (string, bool) {
	return r.text, r.converted
}

func (r Result) Converted() bool {
	return r.converted
}

// Or returns the converted text, or fallback when nothing was converted.
func (r Result) Or(fallback string) string {
	if !r.converted {
		return fallback
	}
	return r.text
}
