package security

import "testing"

func TestTextSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text", input: "読書リスト", want: "読書リスト"},
		{name: "strips tags", input: "<b>太字</b>のタイトル", want: "太字のタイトル"},
		{name: "strips script", input: `<script>alert("xss")</script>メモ`, want: "メモ"},
		{name: "strips img onerror", input: `<img src=x onerror=alert(1)>安全`, want: "安全"},
		{name: "unescapes entities", input: "A &amp; B", want: "A & B"},
		{name: "trims whitespace", input: "  タイトル  ", want: "タイトル"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}

			// 冪等性: 2回適用しても結果は変わらない
			if again := sanitizer.Sanitize(got); again != got {
				t.Errorf("Sanitize is not idempotent: %q -> %q", got, again)
			}
		})
	}
}
