package tangle

import "io"


//============================================= String Codec


// StringCodec passes UTF-8 text through as-is; a value of length 0 round-trips
//	to the empty string, satisfying the zero-length value invariant.
type StringCodec struct{}

func (StringCodec) Serialize(value string, w io.Writer) error {
	_, err := io.WriteString(w, value)
	return err
}

func (StringCodec) Deserialize(r io.Reader, out *string) error {
	raw, err := io.ReadAll(r)
	if err != nil { return err }

	*out = string(raw)
	return nil
}
