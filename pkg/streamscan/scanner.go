// Package streamscan incrementally splits raw model output into plain-text
// segments and tagged tool invocations. The scanner never assumes a tag is
// fully contained in one delivery: partial tags are buffered across Feed
// calls and re-examined when more bytes arrive.
package streamscan

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// TokenKind discriminates scanner output.
type TokenKind int

const (
	// TokenText is a run of plain text outside any tag.
	TokenText TokenKind = iota
	// TokenTag is a fully recognized tagged invocation.
	TokenTag
)

// Token is one unit of scanner output. For TokenTag, Attrs holds the
// string-valued attributes parsed from the tag body and Raw the exact markup
// the tag was reconstructed from.
type Token struct {
	Kind  TokenKind
	Text  string
	Name  string
	Attrs map[string]string
	Raw   string
}

func textToken(s string) Token { return Token{Kind: TokenText, Text: s} }

// maxTagNameLen bounds how long a potential open tag is buffered before the
// scanner gives up and flushes it as text.
const maxTagNameLen = 64

type scannerState int

const (
	stateIdle scannerState = iota
	stateCapturing
)

// Scanner recognizes `<name>` ... `</name>` invocations whose body is a YAML
// mapping of attributes. Tag bodies are captured with a lag buffer so close
// tag bytes never leak into the payload.
type Scanner struct {
	isTag func(name string) bool

	state         scannerState
	openTagBuf    strings.Builder
	name          string
	expectedClose string
	payloadBuf    strings.Builder
	lag           []byte
}

type Option func(*Scanner)

// WithTagPredicate restricts which tag names the scanner treats as
// invocations. Names that fail the predicate are passed through as text.
// Without a predicate every well-formed tag is recognized; routing of unknown
// names to a default handler is the dispatcher's concern, not the scanner's.
func WithTagPredicate(isTag func(name string) bool) Option {
	return func(s *Scanner) {
		s.isTag = isTag
	}
}

func NewScanner(options ...Option) *Scanner {
	ret := &Scanner{}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// Feed consumes one chunk and returns the tokens recognized so far, in order.
// Bytes that may still turn into a tag stay in the carry buffer until the
// next Feed or Finish call.
func (s *Scanner) Feed(chunk string) []Token {
	var tokens []Token
	var out strings.Builder

	flushText := func() {
		if out.Len() > 0 {
			tokens = append(tokens, textToken(out.String()))
			out.Reset()
		}
	}

	for i := 0; i < len(chunk); i++ {
		ch := chunk[i]

		if s.state == stateIdle {
			if s.openTagBuf.Len() == 0 {
				if ch == '<' {
					s.openTagBuf.WriteByte('<')
					continue
				}
				out.WriteByte(ch)
				continue
			}

			// A potential open tag is in progress.
			if ch == '>' {
				name := s.openTagBuf.String()[1:]
				if isValidTagName(name) && s.accepts(name) {
					s.enterCapture(name)
					continue
				}
				// Not an invocation; the buffered bytes were ordinary text.
				out.WriteString(s.openTagBuf.String())
				out.WriteByte('>')
				s.openTagBuf.Reset()
				continue
			}
			if isTagNameByte(ch) && s.openTagBuf.Len() <= maxTagNameLen {
				s.openTagBuf.WriteByte(ch)
				continue
			}
			// The buffer cannot be a tag anymore; flush and reprocess ch.
			out.WriteString(s.openTagBuf.String())
			s.openTagBuf.Reset()
			if ch == '<' {
				s.openTagBuf.WriteByte('<')
			} else {
				out.WriteByte(ch)
			}
			continue
		}

		// Capturing: detect the close tag via the lag buffer.
		closeLen := len(s.expectedClose)
		if len(s.lag)+1 == closeLen {
			if strings.HasPrefix(s.expectedClose, string(s.lag)) && s.expectedClose[closeLen-1] == ch {
				flushText()
				tokens = append(tokens, s.finishCapture())
				continue
			}
		}
		if len(s.lag) == closeLen-1 {
			s.payloadBuf.WriteByte(s.lag[0])
			s.lag = s.lag[1:]
		}
		s.lag = append(s.lag, ch)
	}

	flushText()
	return tokens
}

// Finish flushes whatever the scanner is still holding. An unterminated tag
// is reconstructed and returned as plain text, never dropped.
func (s *Scanner) Finish() []Token {
	var tokens []Token
	if s.state == stateCapturing {
		var raw strings.Builder
		raw.WriteString("<" + s.name + ">")
		raw.WriteString(s.payloadBuf.String())
		raw.Write(s.lag)
		log.Warn().Str("tag", s.name).Msg("stream ended inside a tag; flushing as text")
		tokens = append(tokens, textToken(raw.String()))
		s.reset()
	}
	if s.openTagBuf.Len() > 0 {
		tokens = append(tokens, textToken(s.openTagBuf.String()))
		s.openTagBuf.Reset()
	}
	return tokens
}

func (s *Scanner) accepts(name string) bool {
	if s.isTag == nil {
		return true
	}
	return s.isTag(name)
}

func (s *Scanner) enterCapture(name string) {
	s.state = stateCapturing
	s.name = name
	s.expectedClose = "</" + name + ">"
	s.payloadBuf.Reset()
	s.lag = s.lag[:0]
	s.openTagBuf.Reset()
	log.Debug().Str("tag", name).Msg("open tag detected")
}

// finishCapture parses the captured body and returns either the tag token or,
// when the attribute body is malformed, the reconstructed markup as text.
func (s *Scanner) finishCapture() Token {
	name := s.name
	body := s.payloadBuf.String()
	raw := "<" + name + ">" + body + s.expectedClose
	s.reset()

	attrs, err := ParseAttributes(body)
	if err != nil {
		log.Warn().Err(err).Str("tag", name).Msg("malformed tag attributes; reinserting as text")
		return textToken(raw)
	}
	return Token{Kind: TokenTag, Name: name, Attrs: attrs, Raw: raw}
}

func (s *Scanner) reset() {
	s.state = stateIdle
	s.name = ""
	s.expectedClose = ""
	s.payloadBuf.Reset()
	s.lag = s.lag[:0]
	s.openTagBuf.Reset()
}

// ParseAttributes decodes a tag body into string-valued attributes. The body
// is a YAML mapping; scalar values of other types are stringified.
func ParseAttributes(body string) (map[string]string, error) {
	attrs := map[string]string{}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return attrs, nil
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, err
	}
	for k, v := range raw {
		switch tv := v.(type) {
		case string:
			attrs[k] = tv
		case nil:
			attrs[k] = ""
		default:
			// Nested values stay YAML so downstream handlers can decode them.
			b, err := yaml.Marshal(tv)
			if err != nil {
				attrs[k] = fmt.Sprintf("%v", tv)
				continue
			}
			attrs[k] = strings.TrimSuffix(string(b), "\n")
		}
	}
	return attrs, nil
}

func isValidTagName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTagNameByte(s[i]) {
			return false
		}
	}
	return true
}

func isTagNameByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
}
