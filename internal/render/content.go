package render

// OperandKind is the type of a content stream operand
type OperandKind int

const (
	OperandNull OperandKind = iota
	OperandNumber
	OperandBool
	OperandName
	OperandString
	OperandArray
	OperandDict
)

// Operand is one operand preceding an operator
type Operand struct {
	Kind   OperandKind
	Number float64
	Bool   bool
	Name   string
	String string
	Array  []Operand
	Dict   map[string]Operand
}

// InlineImage is the header of a BI ... ID ... EI sequence; the sample data is skipped
type InlineImage struct {
	Width  float64
	Height float64
}

// Operation is an operator with its operands
type Operation struct {
	Operator string
	Operands []Operand
	Inline   *InlineImage
}

// Numbers returns the numeric operands, or false if any operand is not a number
func (op Operation) Numbers() ([]float64, bool) {
	out := make([]float64, len(op.Operands))
	for i, o := range op.Operands {
		if o.Kind != OperandNumber {
			return nil, false
		}
		out[i] = o.Number
	}
	return out, true
}

// NameOperand returns the last name operand
func (op Operation) NameOperand() (string, bool) {
	for i := len(op.Operands) - 1; i >= 0; i-- {
		if op.Operands[i].Kind == OperandName {
			return op.Operands[i].Name, true
		}
	}
	return "", false
}

// ParseContent splits a decoded content stream into operations
func ParseContent(data []byte) []Operation {
	lex := NewLexer(data)
	var ops []Operation
	var operands []Operand

	for {
		tok := lex.Next()
		switch tok.Type {
		case TokenEOF:
			return ops
		case TokenKeyword:
			switch tok.Value {
			case "true", "false", "null":
				operands = append(operands, keywordOperand(tok.Value))
				continue
			case "BI":
				ops = append(ops, Operation{Operator: "BI", Inline: parseInlineImage(lex)})
			default:
				ops = append(ops, Operation{Operator: tok.Value, Operands: operands})
			}
			operands = nil
		case TokenArrayEnd, TokenDictEnd:
			// unbalanced closer; drop it
		default:
			operands = append(operands, parseValue(lex, tok))
		}
	}
}

func keywordOperand(kw string) Operand {
	switch kw {
	case "true":
		return Operand{Kind: OperandBool, Bool: true}
	case "false":
		return Operand{Kind: OperandBool}
	default:
		return Operand{Kind: OperandNull}
	}
}

func parseValue(lex *Lexer, tok Token) Operand {
	switch tok.Type {
	case TokenNumber:
		return Operand{Kind: OperandNumber, Number: parseNumber(tok.Value)}
	case TokenName:
		return Operand{Kind: OperandName, Name: tok.Value}
	case TokenString, TokenHexString:
		return Operand{Kind: OperandString, String: tok.Value}
	case TokenArrayStart:
		arr := Operand{Kind: OperandArray}
		for {
			next := lex.Next()
			if next.Type == TokenArrayEnd || next.Type == TokenEOF {
				return arr
			}
			if next.Type == TokenKeyword {
				arr.Array = append(arr.Array, keywordOperand(next.Value))
				continue
			}
			arr.Array = append(arr.Array, parseValue(lex, next))
		}
	case TokenDictStart:
		return parseDict(lex, TokenDictEnd, "")
	case TokenKeyword:
		return keywordOperand(tok.Value)
	default:
		return Operand{Kind: OperandNull}
	}
}

// parseDict reads key/value pairs until the closing token, or until the keyword stop
// when one is given.
func parseDict(lex *Lexer, closer TokenType, stop string) Operand {
	dict := Operand{Kind: OperandDict, Dict: map[string]Operand{}}
	for {
		key := lex.Next()
		switch {
		case key.Type == TokenEOF, key.Type == closer:
			return dict
		case key.Type == TokenKeyword && key.Value == stop:
			return dict
		case key.Type != TokenName:
			continue
		}

		val := lex.Next()
		if val.Type == TokenEOF {
			return dict
		}
		if val.Type == TokenKeyword && val.Value == stop {
			return dict
		}
		dict.Dict[key.Value] = parseValue(lex, val)
	}
}

func parseInlineImage(lex *Lexer) *InlineImage {
	header := parseDict(lex, TokenEOF, "ID")
	lex.SkipInlineImage()

	img := &InlineImage{}
	for _, key := range []string{"W", "Width"} {
		if v, ok := header.Dict[key]; ok && v.Kind == OperandNumber {
			img.Width = v.Number
		}
	}
	for _, key := range []string{"H", "Height"} {
		if v, ok := header.Dict[key]; ok && v.Kind == OperandNumber {
			img.Height = v.Number
		}
	}
	return img
}
