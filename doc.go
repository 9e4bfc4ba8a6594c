// Package boss implements BOSS, a compact self-describing binary format for
// trees of integers, floats, strings, blobs, booleans, timestamps, lists and
// maps.
//
// Every value starts with a header byte carrying a 3-bit type code and a
// 5-bit field. Small magnitudes live in the field; larger ones follow in
// little-endian bytes or, past 8 bytes, behind a varint length.
//
// Components:
//   - Encoder / Decoder: stream values with a shared reference cache, so a
//     string, blob, list or dict equal to one already written costs a single
//     back-reference. Decoded back-references are the same object as the
//     first occurrence.
//   - Compression envelopes: PutCompressed wraps one value, deflating inner
//     streams longer than 160 bytes.
//   - Stream mode: EnterStreamMode turns the cache off for the rest of the
//     stream, so unbounded streams need bounded memory.
//   - FromGo / ToGo: bridges to native Go values.
//
// Whole-buffer helpers:
//
//	b, _ := boss.EncodeMany(boss.NewInt(1), boss.Text("hi"))
//	vs, _ := boss.DecodeAll(b) // [1 hi]
//
// Subpackages adapt the format to other serializers (codec), cache backends
// (store, provider) and loggers (log/...).
package boss
