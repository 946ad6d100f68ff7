package symbols

// internal/symbols/comments.go

// AddComment records a raw doc comment. Comments are captured positionally
// during parsing and attached to declarations later by the background
// comment-association task.
func (t *Table) AddComment(c Comment) {
	t.comments = append(t.comments, c)
}

// Comments returns the recorded doc comments in capture order.
func (t *Table) Comments() []Comment {
	return append([]Comment(nil), t.comments...)
}

// AssociateComments attaches each recorded comment to the declaration whose
// identifier starts on the line immediately below the comment's last line.
// A comment with no adjacent declaration stays unattached. Returns the
// number of symbols that received documentation.
//
// Attachments are computed aside and merged under the write lock, so a
// concurrent Documentation reader sees either no entry or a complete one.
func (t *Table) AssociateComments() int {
	if len(t.comments) == 0 {
		return 0
	}

	byLine := make(map[uint32]*Symbol)
	for _, sym := range t.AllSymbols() {
		if sym.Kind == KindBlock || sym.Kind == KindFile {
			continue
		}
		line := sym.Location.Identifier.Start.Line
		// AllSymbols is id-ordered, so the first declaration on a line wins.
		if _, taken := byLine[line]; !taken {
			byLine[line] = sym
		}
	}

	attach := make(map[string]string)
	for _, c := range t.comments {
		if sym, ok := byLine[c.Range.End.Line+1]; ok {
			attach[sym.ID] = c.Text
		}
	}
	if len(attach) == 0 {
		return 0
	}

	t.refMu.Lock()
	defer t.refMu.Unlock()
	if t.docs == nil {
		t.docs = make(map[string]string, len(attach))
	}
	attached := 0
	for id, text := range attach {
		if t.docs[id] == "" {
			attached++
		}
		t.docs[id] = text
	}
	return attached
}

// Documentation returns the doc comment attached to a symbol id, or the
// empty string when the symbol is undocumented.
func (t *Table) Documentation(symbolID string) string {
	t.refMu.RLock()
	defer t.refMu.RUnlock()
	return t.docs[symbolID]
}
