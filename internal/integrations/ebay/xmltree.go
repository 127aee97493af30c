package ebay

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/BearBump/ParcelSync/internal/integrations/marketplace"
	"github.com/pkg/errors"
)

// decodeTree turns a Trading API response into a generic tree rooted at the
// response element. Elements with children become map[string]any; a child
// name seen more than once becomes []any, otherwise its single value is stored
// as is. Text-only elements become strings, or an object with "value" plus
// "_"-prefixed attributes when the element carries attributes.
func decodeTree(r io.Reader) (marketplace.Payload, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, errors.New("empty xml document")
		}
		if err != nil {
			return nil, errors.Wrap(err, "read xml")
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		v, err := decodeElement(dec, start)
		if err != nil {
			return nil, err
		}
		if m, ok := v.(map[string]any); ok {
			return marketplace.Payload(m), nil
		}
		return marketplace.Payload{}, nil
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	children := map[string]any{}
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrapf(err, "decode <%s>", start.Name.Local)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			addChild(children, t.Name.Local, v)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(children) > 0 {
				return children, nil
			}
			s := strings.TrimSpace(text.String())
			if len(start.Attr) == 0 {
				return s, nil
			}
			withAttrs := map[string]any{"value": s}
			for _, a := range start.Attr {
				withAttrs["_"+a.Name.Local] = a.Value
			}
			return withAttrs, nil
		}
	}
}

func addChild(m map[string]any, name string, v any) {
	prev, ok := m[name]
	if !ok {
		m[name] = v
		return
	}
	if l, ok := prev.([]any); ok {
		m[name] = append(l, v)
		return
	}
	m[name] = []any{prev, v}
}
