package schema

import (
	"errors"
	"strings"
)

// Definition parser errors.
var (
	ErrInvalidObjectClass   = errors.New("invalid object class definition")
	ErrInvalidAttributeType = errors.New("invalid attribute type definition")
	ErrMissingOID           = errors.New("missing OID in definition")
	ErrUnterminatedString   = errors.New("unterminated quoted string")
	ErrUnterminatedParens   = errors.New("unterminated parentheses")
)

// ParseObjectClass parses an RFC 4512 object class definition string.
// Format: ( OID NAME 'name' SUP superior KIND MUST (attr1 $ attr2) MAY (attr3) )
func ParseObjectClass(s string) (*ObjectClass, error) {
	tokens, err := defTokens(s, ErrInvalidObjectClass)
	if err != nil {
		return nil, err
	}

	oc := &ObjectClass{
		OID:  tokens[0],
		Kind: ObjectClassStructural,
	}

	for i := 1; i < len(tokens); i++ {
		switch strings.ToUpper(tokens[i]) {
		case "NAME":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidObjectClass
			}
			names := parseNames(tokens[i])
			if len(names) > 0 {
				oc.Name = names[0]
				oc.Names = names
			}
		case "DESC":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidObjectClass
			}
			oc.Desc = unquote(tokens[i])
		case "OBSOLETE":
			oc.Obsolete = true
		case "SUP":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidObjectClass
			}
			oc.Superior = unquote(tokens[i])
		case "ABSTRACT":
			oc.Kind = ObjectClassAbstract
		case "STRUCTURAL":
			oc.Kind = ObjectClassStructural
		case "AUXILIARY":
			oc.Kind = ObjectClassAuxiliary
		case "MUST":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidObjectClass
			}
			oc.Must = parseAttributeList(tokens[i])
		case "MAY":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidObjectClass
			}
			oc.May = parseAttributeList(tokens[i])
		}
	}

	return oc, nil
}

// ParseAttributeType parses an RFC 4512 attribute type definition string.
// Format: ( OID NAME 'name' SUP sup EQUALITY rule SYNTAX oid SINGLE-VALUE
// COLLECTIVE NO-USER-MODIFICATION USAGE usage )
func ParseAttributeType(s string) (*AttributeType, error) {
	tokens, err := defTokens(s, ErrInvalidAttributeType)
	if err != nil {
		return nil, err
	}

	attrType := &AttributeType{
		OID:   tokens[0],
		Usage: UserApplications,
	}

	for i := 1; i < len(tokens); i++ {
		switch strings.ToUpper(tokens[i]) {
		case "NAME":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidAttributeType
			}
			names := parseNames(tokens[i])
			if len(names) > 0 {
				attrType.Name = names[0]
				attrType.Names = names
			}
		case "DESC":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidAttributeType
			}
			attrType.Desc = unquote(tokens[i])
		case "OBSOLETE":
			attrType.Obsolete = true
		case "SUP":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidAttributeType
			}
			attrType.Superior = unquote(tokens[i])
		case "EQUALITY":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidAttributeType
			}
			attrType.Equality = tokens[i]
		case "ORDERING":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidAttributeType
			}
			attrType.Ordering = tokens[i]
		case "SUBSTR":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidAttributeType
			}
			attrType.Substring = tokens[i]
		case "SYNTAX":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidAttributeType
			}
			// Strip any length suffix such as {64}.
			syntax := tokens[i]
			if idx := strings.IndexByte(syntax, '{'); idx >= 0 {
				syntax = syntax[:idx]
			}
			attrType.Syntax = syntax
		case "SINGLE-VALUE":
			attrType.SingleValue = true
		case "COLLECTIVE":
			attrType.Collective = true
		case "NO-USER-MODIFICATION":
			attrType.NoUserMod = true
		case "USAGE":
			i++
			if i >= len(tokens) {
				return nil, ErrInvalidAttributeType
			}
			switch tokens[i] {
			case "directoryOperation":
				attrType.Usage = DirectoryOperation
			case "distributedOperation":
				attrType.Usage = DistributedOperation
			case "dSAOperation":
				attrType.Usage = DSAOperation
			default:
				attrType.Usage = UserApplications
			}
		}
	}

	return attrType, nil
}

// defTokens strips the outer parentheses of a definition and tokenizes
// its body, returning at least the leading OID token.
func defTokens(s string, invalid error) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, invalid
	}
	tokens, err := tokenize(strings.TrimSpace(s[1 : len(s)-1]))
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrMissingOID
	}
	return tokens, nil
}

// tokenize splits a definition body into tokens. Quoted strings and
// parenthesized groups each form a single token.
func tokenize(s string) ([]string, error) {
	var tokens []string
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return nil, ErrUnterminatedString
			}
			tokens = append(tokens, s[i:i+end+2])
			i += end + 2
		case c == '(':
			depth := 0
			j := i
			for ; j < len(s); j++ {
				if s[j] == '(' {
					depth++
				} else if s[j] == ')' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if depth != 0 {
				return nil, ErrUnterminatedParens
			}
			tokens = append(tokens, s[i:j+1])
			i = j + 1
		default:
			j := i
			for j < len(s) && s[j] != ' ' && s[j] != '\t' {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		}
	}
	return tokens, nil
}

// parseNames extracts one or more quoted names from a NAME token, which
// is either 'name' or ( 'name1' 'name2' ).
func parseNames(token string) []string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "(") {
		token = strings.TrimSuffix(strings.TrimPrefix(token, "("), ")")
	}
	var names []string
	for {
		start := strings.IndexByte(token, '\'')
		if start < 0 {
			break
		}
		end := strings.IndexByte(token[start+1:], '\'')
		if end < 0 {
			break
		}
		names = append(names, token[start+1:start+1+end])
		token = token[start+end+2:]
	}
	return names
}

// parseAttributeList extracts attribute names from a MUST/MAY token,
// which is either a bare name or ( a $ b $ c ).
func parseAttributeList(token string) []string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "(") {
		token = strings.TrimSuffix(strings.TrimPrefix(token, "("), ")")
	}
	parts := strings.Split(token, "$")
	var attrs []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			attrs = append(attrs, unquote(p))
		}
	}
	return attrs
}

// unquote removes surrounding single quotes from a token.
func unquote(s string) string {
	return strings.Trim(s, "'")
}
