package qrcode

// gfMultiply multiplies two elements of GF(2^8) modulo x^8 + x^4 + x^3 + x^2 + 1.
func gfMultiply(x, y byte) byte {
	z := 0
	for i := 7; i >= 0; i-- {
		z = (z << 1) ^ ((z >> 7) * 0x11D)
		z ^= int((y>>uint(i))&1) * int(x)
	}
	return byte(z)
}

// rsDivisor returns the generator polynomial of the given degree, highest
// coefficient first with the leading 1 omitted.
func rsDivisor(degree int) []byte {
	result := make([]byte, degree)
	result[degree-1] = 1

	root := byte(1)
	for i := 0; i < degree; i++ {
		for j := range result {
			result[j] = gfMultiply(result[j], root)
			if j+1 < len(result) {
				result[j] ^= result[j+1]
			}
		}
		root = gfMultiply(root, 0x02)
	}
	return result
}

// rsRemainder returns the error correction codewords for data.
func rsRemainder(data, divisor []byte) []byte {
	result := make([]byte, len(divisor))
	for _, b := range data {
		factor := b ^ result[0]
		copy(result, result[1:])
		result[len(result)-1] = 0
		for i, coef := range divisor {
			result[i] ^= gfMultiply(coef, factor)
		}
	}
	return result
}

// addECCAndInterleave splits data into blocks, appends each block's error
// correction codewords and interleaves the result into final codeword order.
func addECCAndInterleave(data []byte, version int, level Level) []byte {
	numBlocks := numErrorCorrectionBlocks[level][version]
	blockECCLen := eccCodewordsPerBlock[level][version]
	rawCodewords := numRawDataModules(version) / 8
	numShortBlocks := numBlocks - rawCodewords%numBlocks
	shortBlockLen := rawCodewords / numBlocks

	divisor := rsDivisor(blockECCLen)
	blocks := make([][]byte, numBlocks)
	for i, k := 0, 0; i < numBlocks; i++ {
		datLen := shortBlockLen - blockECCLen
		if i >= numShortBlocks {
			datLen++
		}
		dat := data[k : k+datLen]
		k += datLen

		// Short blocks carry one placeholder byte so every block has equal length.
		block := make([]byte, shortBlockLen+1)
		copy(block, dat)
		copy(block[len(block)-blockECCLen:], rsRemainder(dat, divisor))
		blocks[i] = block
	}

	result := make([]byte, 0, rawCodewords)
	for i := 0; i < shortBlockLen+1; i++ {
		for j, block := range blocks {
			if i != shortBlockLen-blockECCLen || j >= numShortBlocks {
				result = append(result, block[i])
			}
		}
	}
	return result
}
