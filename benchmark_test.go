package hf_bpe

import (
	"strings"
	"testing"
	"time"
)

func BenchmarkBPEEncoder_Encode(b *testing.B) {
	b.StopTimer()
	encoder := newHelloEncoder(b, true)
	corpus := strings.Repeat("hello world <mask> hello  world\n", 4096)
	start := time.Now()
	tokenCount := 0
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tokenCount += len(encoder.Encode(corpus))
	}
	b.StopTimer()
	elapsed := time.Since(start)
	b.ReportMetric(float64(tokenCount)/elapsed.Seconds(), "tokens/sec")
}

func BenchmarkBPEEncoder_Decode(b *testing.B) {
	b.StopTimer()
	encoder := newHelloEncoder(b, false)
	tokens := encoder.Encode(strings.Repeat("hello world ", 8192))
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_ = encoder.Decode(tokens)
	}
}
