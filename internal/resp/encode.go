package resp

import "strconv"

// EncodeCommand renders args as the RESP array-of-bulk-strings wire
// form used both for client command echoes in tests and for
// replication propagation, where the primary must forward the
// byte-identical encoded form to every replica (spec §4.6/§8.6).
func EncodeCommand(args [][]byte) []byte {
	n := 0
	n += 1 + len(strconv.Itoa(len(args))) + 2
	for _, a := range args {
		n += 1 + len(strconv.Itoa(len(a))) + 2 + len(a) + 2
	}
	buf := make([]byte, 0, n)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, '\r', '\n')
	for _, a := range args {
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(a)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, a...)
		buf = append(buf, '\r', '\n')
	}
	return buf
}
