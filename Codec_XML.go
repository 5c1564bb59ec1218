package tangle

import (
	"encoding/xml"
	"io"
)


//============================================= XML Codec


// XMLCodec is the fallback codec for arbitrary struct values when no tighter
//	binary layout is worth hand-rolling. Built on encoding/xml: no library in
//	the retrieval pack offers a smaller-footprint structured fallback, so the
//	standard library is used directly here (see DESIGN.md).
type XMLCodec[T any] struct{}

func (XMLCodec[T]) Serialize(value T, w io.Writer) error {
	return xml.NewEncoder(w).Encode(value)
}

func (XMLCodec[T]) Deserialize(r io.Reader, out *T) error {
	return xml.NewDecoder(r).Decode(out)
}
