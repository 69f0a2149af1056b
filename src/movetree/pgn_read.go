package movetree

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/corentings/chess/v2"

	"github.com/jacokyle01/blindbase/src/rules"
)

var (
	// ErrEmpty is returned when text holds no game record.
	ErrEmpty = errors.New("no game record")
	// ErrSyntax wraps every malformed-record failure.
	ErrSyntax = errors.New("malformed game record")
)

// RecordError reports a record of a multi-game stream that was skipped.
type RecordError struct {
	Index int // 1-based position of the record in the stream
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Parse reads the first game record in text.
func Parse(r rules.Rules, text string) (*Tree, error) {
	for _, rec := range splitRecords(text) {
		return parseRecord(r, rec)
	}
	return nil, ErrEmpty
}

// ParseAll reads every record of a multi-game stream. Malformed records are
// skipped and reported as *RecordError; they never affect other records.
func ParseAll(r rules.Rules, rd io.Reader) ([]*Tree, []error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, []error{err}
	}
	var (
		trees []*Tree
		errs  []error
	)
	for i, rec := range splitRecords(string(data)) {
		t, err := parseRecord(r, rec)
		if err != nil {
			errs = append(errs, &RecordError{Index: i + 1, Err: err})
			continue
		}
		trees = append(trees, t)
	}
	return trees, errs
}

// The lexer reads a tag value up to the next quote, so escaped quotes and
// backslashes travel through it as control characters.
const (
	tagQuote     = "\x1e"
	tagBackslash = "\x1f"
)

var (
	escapeTag   = strings.NewReplacer(`\\`, tagBackslash, `\"`, tagQuote)
	unescapeTag = strings.NewReplacer(tagBackslash, `\`, tagQuote, `"`)
)

// splitRecords cuts a stream at every tag line that follows movetext.
// Each record is rewritten into the subset the chess lexer reads: rest-of-line
// ";" comments become brace comments and "%" escape lines are dropped.
func splitRecords(text string) []string {
	var (
		records  []string
		cur      strings.Builder
		movetext bool
		inBrace  bool
	)
	flush := func() {
		if strings.TrimSpace(cur.String()) != "" {
			records = append(records, cur.String())
		}
		cur.Reset()
		movetext = false
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inBrace {
			if strings.HasPrefix(trimmed, "%") {
				continue
			}
			if strings.HasPrefix(trimmed, "[") {
				if movetext {
					flush()
				}
				cur.WriteString(escapeTag.Replace(line))
				continue
			}
			if trimmed != "" {
				movetext = true
			}
		}
		inBrace = writeMovetextLine(&cur, line, inBrace)
	}
	flush()
	return records
}

// writeMovetextLine copies one line of movetext and reports whether a brace
// comment is still open at its end. Braces inside a ";" comment do not count.
func writeMovetextLine(sb *strings.Builder, line string, inBrace bool) bool {
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inBrace:
			inBrace = c != '}'
		case c == '{':
			inBrace = true
		case c == ';':
			rest := strings.TrimRight(line[i+1:], "\r\n")
			sb.WriteString("{" + strings.ReplaceAll(rest, "}", braceSubstitute) + "}")
			if strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
			return false
		}
		sb.WriteByte(c)
	}
	return inBrace
}

func tokenize(text string) ([]chess.Token, error) {
	lx := chess.NewLexer(text)
	var toks []chess.Token
	for {
		tok := lx.NextToken()
		if tok.Error != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, tok.Error)
		}
		if tok.Type == chess.EOF {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

func parseRecord(r rules.Rules, text string) (*Tree, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	var headers Headers
	i := 0
	for i < len(toks) && toks[i].Type == chess.TagStart {
		if i+3 >= len(toks) || toks[i+1].Type != chess.TagKey ||
			toks[i+2].Type != chess.TagValue || toks[i+3].Type != chess.TagEnd {
			return nil, fmt.Errorf("%w: bad tag pair", ErrSyntax)
		}
		headers.Set(toks[i+1].Value, unescapeTag.Replace(toks[i+2].Value))
		i += 4
	}
	t := New(r, headers)
	if t.startErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, t.startErr)
	}

	b := builder{
		t:         t,
		toks:      toks[i:],
		cur:       Root,
		fresh:     true,
		positions: map[NodeID]*chess.Position{Root: t.start},
	}
	if err := b.movetext(); err != nil {
		return nil, err
	}
	t.current = Root
	t.dirty = false
	return t, nil
}

// suffix annotations and their numeric glyphs
var suffixNAGs = map[string]int{"!": 1, "?": 2, "!!": 3, "??": 4, "!?": 5, "?!": 6}

// builder replays the movetext tokens of one record into the node arena.
type builder struct {
	t         *Tree
	toks      []chess.Token
	i         int
	cur       NodeID
	stack     []NodeID
	fresh     bool   // no move yet in the current game or variation
	pending   string // comment waiting for the first move of a variation
	pendCmds  []Command
	positions map[NodeID]*chess.Position
}

func (b *builder) movetext() error {
	for b.i < len(b.toks) {
		tok := b.toks[b.i]
		switch tok.Type {
		case chess.TagStart:
			return fmt.Errorf("%w: tag after movetext", ErrSyntax)
		case chess.MoveNumber:
			if b.drawResult() {
				return b.result("1/2-1/2")
			}
			if isZeroCastle(tok.Value) {
				b.i++
				if err := b.move(tok.Value); err != nil {
					return err
				}
				continue
			}
			if _, err := strconv.Atoi(tok.Value); err != nil {
				return fmt.Errorf("%w: unexpected %q", ErrSyntax, tok.Value)
			}
			b.i++
		case chess.DOT, chess.ELLIPSIS:
			b.i++
		case chess.PIECE, chess.FILE, chess.SQUARE, chess.KingsideCastle, chess.QueensideCastle:
			if err := b.move(b.san()); err != nil {
				return err
			}
		case chess.NAG:
			if err := b.nag(tok.Value); err != nil {
				return err
			}
			b.i++
		case chess.CommentStart:
			text, cmds, err := b.comment()
			if err != nil {
				return err
			}
			b.attach(text, cmds)
		case chess.VariationStart:
			if b.fresh {
				return fmt.Errorf("%w: variation before any move", ErrSyntax)
			}
			b.stack = append(b.stack, b.cur)
			b.cur = b.t.nodes[b.cur].parent
			b.fresh = true
			b.i++
		case chess.VariationEnd:
			if len(b.stack) == 0 {
				return fmt.Errorf("%w: unbalanced ')'", ErrSyntax)
			}
			b.cur = b.stack[len(b.stack)-1]
			b.stack = b.stack[:len(b.stack)-1]
			b.fresh = false
			b.pending, b.pendCmds = "", nil
			b.i++
		case chess.RESULT:
			return b.result(tok.Value)
		default:
			return fmt.Errorf("%w: unexpected %q", ErrSyntax, tok.Value)
		}
	}
	if len(b.stack) > 0 {
		return fmt.Errorf("%w: unterminated variation", ErrSyntax)
	}
	return nil
}

// drawResult reports whether "1/2-1/2" starts at the cursor; the lexer
// splits it into "1", "/" and "2-1/2".
func (b *builder) drawResult() bool {
	if b.i+2 >= len(b.toks) {
		return false
	}
	a, slash, c := b.toks[b.i], b.toks[b.i+1], b.toks[b.i+2]
	return a.Value == "1" && slash.Type == chess.Undefined && slash.Value == "/" && c.Value == "2-1/2"
}

func isZeroCastle(s string) bool {
	s = strings.TrimRight(s, "+#")
	return s == "0-0" || s == "0-0-0"
}

func (b *builder) result(text string) error {
	if len(b.stack) > 0 {
		return fmt.Errorf("%w: result inside a variation", ErrSyntax)
	}
	if _, ok := b.t.headers.Get("Result"); !ok {
		b.t.headers.Set("Result", text)
	}
	b.i = len(b.toks)
	return nil
}

// san joins the tokens of one move back into algebraic notation.
func (b *builder) san() string {
	var sb strings.Builder
	for ; b.i < len(b.toks); b.i++ {
		tok := b.toks[b.i]
		switch tok.Type {
		case chess.PIECE, chess.FILE, chess.RANK, chess.DeambiguationSquare, chess.CAPTURE:
			sb.WriteString(tok.Value)
		case chess.SQUARE, chess.KingsideCastle, chess.QueensideCastle:
			sb.WriteString(tok.Value)
			for b.i++; b.i < len(b.toks); b.i++ {
				switch b.toks[b.i].Type {
				case chess.PROMOTION, chess.PromotionPiece, chess.CHECK, chess.CHECKMATE:
					sb.WriteString(b.toks[b.i].Value)
				default:
					return sb.String()
				}
			}
			return sb.String()
		default:
			return sb.String()
		}
	}
	return sb.String()
}

func (b *builder) move(san string) error {
	pos := b.positions[b.cur]
	m, err := b.t.rules.ParseMove(pos, san)
	if err != nil {
		return fmt.Errorf("%w: move %q: %v", ErrSyntax, san, err)
	}
	id, ok := b.t.child(b.cur, m)
	if !ok {
		id = b.t.addChild(b.cur, m)
		next, err := b.t.rules.Apply(pos, m)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		b.positions[id] = next
	}
	b.cur = id
	b.fresh = false
	if b.pending != "" || len(b.pendCmds) > 0 {
		n := &b.t.nodes[id]
		n.preComment = joinText(n.preComment, b.pending)
		n.commands = append(n.commands, b.pendCmds...)
		b.pending, b.pendCmds = "", nil
	}
	return nil
}

func (b *builder) nag(value string) error {
	n, ok := suffixNAGs[value]
	if !ok {
		var err error
		n, err = strconv.Atoi(strings.TrimPrefix(value, "$"))
		if err != nil {
			return fmt.Errorf("%w: bad glyph %q", ErrSyntax, value)
		}
	}
	if !b.fresh {
		b.t.nodes[b.cur].nags = append(b.t.nodes[b.cur].nags, n)
	}
	return nil
}

// comment consumes one brace comment, splitting out its embedded commands.
func (b *builder) comment() (string, []Command, error) {
	var (
		text string
		cmds []Command
	)
	for b.i++; b.i < len(b.toks); b.i++ {
		tok := b.toks[b.i]
		switch tok.Type {
		case chess.CommentEnd:
			b.i++
			return text, cmds, nil
		case chess.COMMENT:
			text = joinText(text, strings.Join(strings.Fields(tok.Value), " "))
		case chess.CommandStart:
			cmd, err := b.command()
			if err != nil {
				return "", nil, err
			}
			cmds = append(cmds, cmd)
		default:
			return "", nil, fmt.Errorf("%w: unexpected %q in comment", ErrSyntax, tok.Value)
		}
	}
	return "", nil, fmt.Errorf("%w: unterminated comment", ErrSyntax)
}

func (b *builder) command() (Command, error) {
	var (
		cmd    Command
		params []string
	)
	for b.i++; b.i < len(b.toks); b.i++ {
		tok := b.toks[b.i]
		switch tok.Type {
		case chess.CommandName:
			cmd.Name = tok.Value
		case chess.CommandParam:
			params = append(params, tok.Value)
		case chess.CommandEnd:
			cmd.Value = strings.Join(params, ",")
			return cmd, nil
		default:
			return Command{}, fmt.Errorf("%w: unexpected %q in command", ErrSyntax, tok.Value)
		}
	}
	return Command{}, fmt.Errorf("%w: unterminated command", ErrSyntax)
}

func (b *builder) attach(text string, cmds []Command) {
	if text == "" && len(cmds) == 0 {
		return
	}
	switch {
	case !b.fresh, len(b.stack) == 0 && b.cur == Root:
		n := &b.t.nodes[b.cur]
		n.comment = joinText(n.comment, text)
		n.commands = append(n.commands, cmds...)
	default:
		b.pending = joinText(b.pending, text)
		b.pendCmds = append(b.pendCmds, cmds...)
	}
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
