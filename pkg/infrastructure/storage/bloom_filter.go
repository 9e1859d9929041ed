package storage

import (
	"os"

	"github.com/WangYihang/Config-Collector/pkg/domain/repository"
	"github.com/bits-and-blooms/bloom/v3"
)

// BloomFilter implements repository.CandidateFilter using a Bloom filter.
// False positives drop a small fraction of unseen candidates, never admit duplicates.
type BloomFilter struct {
	filter *bloom.BloomFilter
	size   uint
	fpRate float64
}

// Config holds Bloom filter configuration
type Config struct {
	Size              uint
	FalsePositiveRate float64
}

// NewBloomFilter creates a new Bloom filter
func NewBloomFilter(config Config) repository.CandidateFilter {
	if config.Size == 0 {
		config.Size = 1_000_000
	}
	if config.FalsePositiveRate <= 0 || config.FalsePositiveRate >= 1 {
		config.FalsePositiveRate = 0.0001
	}
	return &BloomFilter{
		filter: bloom.NewWithEstimates(config.Size, config.FalsePositiveRate),
		size:   config.Size,
		fpRate: config.FalsePositiveRate,
	}
}

// Contains checks if a candidate has been seen before
func (bf *BloomFilter) Contains(candidate string) bool {
	return bf.filter.TestString(candidate)
}

// Add adds a candidate to the filter
func (bf *BloomFilter) Add(candidate string) {
	bf.filter.AddString(candidate)
}

// TestAndAdd reports whether the candidate was present and adds it
func (bf *BloomFilter) TestAndAdd(candidate string) bool {
	return bf.filter.TestAndAddString(candidate)
}

// Save persists the filter state
func (bf *BloomFilter) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = bf.filter.WriteTo(file)
	return err
}

// Load restores the filter state
func (bf *BloomFilter) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // first run
		}
		return err
	}
	defer file.Close()

	bf.filter = bloom.NewWithEstimates(bf.size, bf.fpRate)
	_, err = bf.filter.ReadFrom(file)
	return err
}
