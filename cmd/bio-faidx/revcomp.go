package main

var revComp8Table [256]byte

func init() {
	for i := range revComp8Table {
		revComp8Table[i] = 'N'
	}
	for _, pair := range []string{"AT", "CG", "GC", "TA", "at", "cg", "gc", "ta"} {
		revComp8Table[pair[0]] = pair[1]
	}
	revComp8Table['n'] = 'n'
}

// reverseComp8Inplace reverse-complements ascii8[]. Case is preserved for
// A/C/G/T/N; every other byte becomes 'N'.
func reverseComp8Inplace(ascii8 []byte) {
	nByte := len(ascii8)
	nByteDiv2 := nByte >> 1
	for idx, invIdx := 0, nByte-1; idx != nByteDiv2; idx, invIdx = idx+1, invIdx-1 {
		ascii8[idx], ascii8[invIdx] = revComp8Table[ascii8[invIdx]], revComp8Table[ascii8[idx]]
	}
	if nByte&1 == 1 {
		ascii8[nByteDiv2] = revComp8Table[ascii8[nByteDiv2]]
	}
}
