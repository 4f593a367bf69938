package security

import (
	"strings"
	"testing"
)

// TestSanitize_StripsAllTags は全てのHTMLタグが除去されることを検証する。
func TestSanitize_StripsAllTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま通過する",
			input: "3年間コミュニティの動画編集をしています",
			want:  "3年間コミュニティの動画編集をしています",
		},
		{
			name:  "scriptタグが除去される",
			input: `<script>alert("xss")</script>hello`,
			want:  "hello",
		},
		{
			name:  "imgのonerror属性ごと除去される",
			input: `<img src=x onerror=alert(1)>name`,
			want:  "name",
		},
		{
			name:  "許可タグは存在しない（pタグも除去）",
			input: "<p>message</p>",
			want:  "message",
		},
		{
			name:  "aタグはテキストのみ残る",
			input: `<a href="https://evil.example">portfolio</a>`,
			want:  "portfolio",
		},
		{
			name:  "前後空白が詰められる",
			input: "  padded  ",
			want:  "padded",
		},
		{
			name:  "空文字列は空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力となることを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := `<b>bold</b> and <script>bad()</script> text`
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)

	if first != second {
		t.Errorf("sanitize is not idempotent: first=%q second=%q", first, second)
	}
}

// TestSanitize_NeverContainsTags はサニタイズ後の出力にタグが残らないことを検証する。
func TestSanitize_NeverContainsTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		`<iframe src="https://evil.example"></iframe>`,
		`<style>body{display:none}</style>text`,
		`<div onclick="steal()">click</div>`,
	}

	for _, input := range inputs {
		got := sanitizer.Sanitize(input)
		if strings.Contains(got, "<") || strings.Contains(got, ">") {
			t.Errorf("Sanitize(%q) = %q, still contains tag characters", input, got)
		}
	}
}
