package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Term 稀疏向量中的一个 (词, 权重) 对
type Term struct {
	Word   string
	Weight float64
}

// Vector 稀疏 TF-IDF 向量，始终按 Word 排序，便于归并求点积
type Vector []Term

// Tokenize 将文本切分为小写词元。
// 词元是连续的字母/数字/下划线，长度至少为 2，单字符词被丢弃。
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	n := 0

	flush := func() {
		if n >= 2 {
			tokens = append(tokens, b.String())
		}
		b.Reset()
		n = 0
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			n++
			continue
		}
		flush()
	}
	flush()

	return tokens
}

// Vectorize 以 docs 作为语料构建 L2 归一化的 TF-IDF 向量。
// idf 采用平滑公式 ln((1+n)/(1+df)) + 1；空文档得到零向量 (nil)。
func Vectorize(docs []string) []Vector {
	termCounts := make([]map[string]int, len(docs))
	df := make(map[string]int)

	for i, doc := range docs {
		counts := make(map[string]int)
		for _, tok := range Tokenize(doc) {
			counts[tok]++
		}
		for tok := range counts {
			df[tok]++
		}
		termCounts[i] = counts
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for tok, d := range df {
		idf[tok] = math.Log((1+n)/(1+float64(d))) + 1
	}

	vectors := make([]Vector, len(docs))
	for i, counts := range termCounts {
		vectors[i] = newVector(counts, idf)
	}
	return vectors
}

func newVector(counts map[string]int, idf map[string]float64) Vector {
	if len(counts) == 0 {
		return nil
	}

	v := make(Vector, 0, len(counts))
	var norm float64
	for word, tf := range counts {
		w := float64(tf) * idf[word]
		norm += w * w
		v = append(v, Term{Word: word, Weight: w})
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range v {
			v[i].Weight /= norm
		}
	}

	sort.Slice(v, func(i, j int) bool {
		return v[i].Word < v[j].Word
	})
	return v
}

// Cosine 计算两个已排序稀疏向量的余弦相似度。
// 任一向量为零向量时返回 0；结果截断在 [0, 1] 内以吸收浮点误差。
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Word == b[j].Word:
			dot += a[i].Weight * b[j].Weight
			normA += a[i].Weight * a[i].Weight
			normB += b[j].Weight * b[j].Weight
			i++
			j++
		case a[i].Word < b[j].Word:
			normA += a[i].Weight * a[i].Weight
			i++
		default:
			normB += b[j].Weight * b[j].Weight
			j++
		}
	}
	for ; i < len(a); i++ {
		normA += a[i].Weight * a[i].Weight
	}
	for ; j < len(b); j++ {
		normB += b[j].Weight * b[j].Weight
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	sim := dot / denom
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
