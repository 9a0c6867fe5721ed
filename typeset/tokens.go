package typeset

import (
	"strings"
	"unicode"
)

// tokenize 把一行文本切成可折行的片段：连续空白、连续非空白各为一段，
// 表意文字逐字成段，因此中日韩文本可以在任意两个字之间折行。
func tokenize(s string) []string {
	var tokens []string
	var b strings.Builder
	lastWasSpace := false
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tokens = append(tokens, b.String())
		b.Reset()
	}

	for _, r := range s {
		if r == '\r' {
			continue
		}
		if breaksAnywhere(r) {
			flush()
			tokens = append(tokens, string(r))
			lastWasSpace = false
			continue
		}
		isSpace := unicode.IsSpace(r)
		if b.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		b.WriteRune(r)
	}
	flush()
	return tokens
}

func breaksAnywhere(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

// fitPrefix 返回能放进 limit 的最长前缀（按片段累加，去掉行尾空白）以及余下部分（去掉行首空白）。
// 第一个非空白片段就放不下时 head 为空。
func fitPrefix(tokens []string, limit float64, face Face) (head, rest string) {
	var b strings.Builder
	i := 0
	for ; i < len(tokens); i++ {
		if face.TextWidth(b.String()+tokens[i]) > limit {
			break
		}
		b.WriteString(tokens[i])
	}
	head = strings.TrimRightFunc(b.String(), unicode.IsSpace)
	rest = strings.TrimLeftFunc(strings.Join(tokens[i:], ""), unicode.IsSpace)
	return head, rest
}

// splitByWidth 在片段内部按字符截断，返回放得下的前缀与余下部分；
// 前缀至少包含一个字符。
func splitByWidth(token string, limit float64, face Face) (head, rest string) {
	runes := []rune(token)
	n := 1
	for n < len(runes) && face.TextWidth(string(runes[:n+1])) <= limit {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}
