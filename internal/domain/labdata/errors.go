package labdata

import "errors"

var (
	ErrNegativeCount       = errors.New("sheet sizes cannot be negative")
	ErrSmallExceedsLarge   = errors.New("small sheet size cannot be larger than large sheet size")
	ErrZeroLarge           = errors.New("large sheet size cannot be zero")
	ErrNotEnoughDuplicates = errors.New("small sheet size cannot exceed the duplicate share of the large sheet")
	ErrInvalidRatio        = errors.New("ratio must be between 0 and 1")
	ErrInvalidWindow       = errors.New("visit window is invalid")
	ErrNoSampleTypes       = errors.New("at least one sample type is required")
)
