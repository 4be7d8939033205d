package resp

import (
	"bytes"
	"strconv"
)

// Serialize produces the canonical wire bytes for msg.
func Serialize(msg Message) []byte {
	var buf bytes.Buffer
	writeMessage(&buf, msg)
	return buf.Bytes()
}

func writeMessage(buf *bytes.Buffer, msg Message) {
	switch msg.Type {
	case SimpleString:
		buf.WriteByte('+')
		buf.WriteString(msg.Str)
		buf.WriteString("\r\n")
	case Error:
		buf.WriteByte('-')
		buf.WriteString(msg.Str)
		buf.WriteString("\r\n")
	case Integer:
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(msg.Int, 10))
		buf.WriteString("\r\n")
	case BulkString:
		if msg.IsNull {
			buf.WriteString("$-1\r\n")
			return
		}
		buf.WriteByte('$')
		buf.WriteString(strconv.Itoa(len(msg.Bulk)))
		buf.WriteString("\r\n")
		buf.Write(msg.Bulk)
		buf.WriteString("\r\n")
	case Array:
		if msg.IsNull {
			buf.WriteString("*-1\r\n")
			return
		}
		buf.WriteByte('*')
		buf.WriteString(strconv.Itoa(len(msg.Array)))
		buf.WriteString("\r\n")
		for _, elem := range msg.Array {
			writeMessage(buf, elem)
		}
	}
}
