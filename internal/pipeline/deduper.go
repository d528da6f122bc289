package pipeline

// Simhash-отпечатки для поиска почти-дубликатов. 64-битный отпечаток строится
// по токенам сегментатора: каждый токен хэшируется FNV-64a, биты голосуют
// взвешенно, итог — знак суммы по каждому разряду. Малое расстояние Хэмминга
// между отпечатками означает текстовую близость.

import (
	"fmt"
	"hash/fnv"
	"math/bits"
	"strconv"
	"strings"
)

// DuplicateThreshold — максимальное расстояние Хэмминга, при котором два
// текста считаются почти-дубликатами. Константа дизайна: 3 бита из 64
// отделяют перефразировки от независимых текстов.
const DuplicateThreshold = 3

const simhashBits = 64

// ComputeSimhash возвращает отпечаток текста как hex-строку с префиксом 0x.
// Пустой или пробельный вход даёт литерал "0".
func ComputeSimhash(text string) string {
	if strings.TrimSpace(text) == "" {
		return "0"
	}

	features := Segment(text, false)
	if len(features) == 0 {
		features = strings.Fields(text)
	}

	var weights [simhashBits]int
	for _, feature := range features {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		for i := range simhashBits {
			if sum>>uint(i)&1 == 1 {
				weights[i]++
			} else {
				weights[i]--
			}
		}
	}

	var fingerprint uint64
	for i := range simhashBits {
		if weights[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fmt.Sprintf("%#x", fingerprint)
}

// parseSimhash разбирает hex-представление отпечатка; литерал "0" и
// нечитаемые значения дают 0.
func parseSimhash(h string) uint64 {
	h = strings.TrimPrefix(strings.TrimSpace(h), "0x")
	if h == "" || h == "0" {
		return 0
	}
	v, err := strconv.ParseUint(h, 16, 64)
	if err != nil {
		return 0
	}
	return v
}

// HammingDistance возвращает число различающихся битов двух отпечатков.
func HammingDistance(hash1, hash2 string) int {
	return bits.OnesCount64(parseSimhash(hash1) ^ parseSimhash(hash2))
}

// IsDuplicate сообщает, являются ли два отпечатка почти-дубликатами при
// заданном пороге расстояния Хэмминга.
func IsDuplicate(hash1, hash2 string, threshold int) bool {
	return HammingDistance(hash1, hash2) <= threshold
}
