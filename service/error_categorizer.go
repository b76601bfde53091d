package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ludo-technologies/asmcluster/domain"
)

// ErrorCategorizerImpl implements the ErrorCategorizer interface
type ErrorCategorizerImpl struct {
	patterns []categoryPatterns
}

type categoryPatterns struct {
	category domain.ErrorCategory
	patterns []string
}

// NewErrorCategorizer creates a new error categorizer
func NewErrorCategorizer() domain.ErrorCategorizer {
	return &ErrorCategorizerImpl{
		patterns: initializeErrorPatterns(),
	}
}

// codeCategories maps domain error codes to categories; it is consulted
// before any message pattern.
var codeCategories = map[string]domain.ErrorCategory{
	domain.ErrCodeInvalidInput:      domain.ErrorCategoryInput,
	domain.ErrCodeFileNotFound:      domain.ErrorCategoryInput,
	domain.ErrCodeEmptyInput:        domain.ErrorCategoryInput,
	domain.ErrCodeConfigError:       domain.ErrorCategoryConfig,
	domain.ErrCodeStorageError:      domain.ErrorCategoryStorage,
	domain.ErrCodeOracleError:       domain.ErrorCategoryProcessing,
	domain.ErrCodeClusterError:      domain.ErrorCategoryProcessing,
	domain.ErrCodeOutputError:       domain.ErrorCategoryOutput,
	domain.ErrCodeUnsupportedFormat: domain.ErrorCategoryOutput,
}

// initializeErrorPatterns lists message patterns in matching order
func initializeErrorPatterns() []categoryPatterns {
	return []categoryPatterns{
		{domain.ErrorCategoryTimeout, []string{
			"timeout",
			"timed out",
			"deadline",
			"context canceled",
		}},
		{domain.ErrorCategoryInput, []string{
			"invalid input",
			"no assemblies found",
			"not a directory",
			"file not found",
			"no such file",
			"cannot access",
			"permission denied",
		}},
		{domain.ErrorCategoryConfig, []string{
			"config",
			"toml",
			"not found in $path",
			"executable file not found",
		}},
		{domain.ErrorCategoryStorage, []string{
			"sqlite",
			"database",
			"store",
			"persist",
		}},
		{domain.ErrorCategoryOutput, []string{
			"write",
			"output",
			"cannot create",
			"report",
		}},
		{domain.ErrorCategoryProcessing, []string{
			"cluster",
			"matrix",
			"distance",
			"mash",
		}},
	}
}

// Categorize determines the category of an error
func (ec *ErrorCategorizerImpl) Categorize(err error) *domain.CategorizedError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ec.categorized(domain.ErrorCategoryTimeout, err)
	}

	var empty *domain.EmptyInputError
	if errors.As(err, &empty) {
		return ec.categorized(domain.ErrorCategoryInput, err)
	}

	var domainErr domain.DomainError
	if errors.As(err, &domainErr) {
		if category, ok := codeCategories[domainErr.Code]; ok {
			return ec.categorized(category, err)
		}
	}

	errMsg := strings.ToLower(err.Error())
	for _, cp := range ec.patterns {
		if containsAnyPattern(errMsg, cp.patterns) {
			return ec.categorized(cp.category, err)
		}
	}

	return &domain.CategorizedError{
		Category: domain.ErrorCategoryUnknown,
		Message:  err.Error(),
		Original: err,
	}
}

func (ec *ErrorCategorizerImpl) categorized(category domain.ErrorCategory, err error) *domain.CategorizedError {
	return &domain.CategorizedError{
		Category: category,
		Message:  ec.getCategoryMessage(category),
		Original: err,
	}
}

// GetRecoverySuggestions returns recovery suggestions for an error category
func (ec *ErrorCategorizerImpl) GetRecoverySuggestions(category domain.ErrorCategory) []string {
	suggestions := map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"Check that the directory exists and contains .fasta, .fna or .fa files",
			"Use --extensions in .asmcluster.toml for other assembly suffixes",
			"Ensure you have read permissions for the assembly files",
		},
		domain.ErrorCategoryConfig: {
			"Verify configuration file format and values",
			"Try: asmcluster init to generate a valid config file",
			"Check that mash is installed or set --mash-binary",
		},
		domain.ErrorCategoryStorage: {
			"Check free disk space and write permissions for the store directory",
			"Re-run with --store PATH --keep-store to resume from finished batches",
		},
		domain.ErrorCategoryTimeout: {
			"Increase --timeout for very large assemblies",
			"Lower --threads if the machine is overloaded",
		},
		domain.ErrorCategoryOutput: {
			"Check write permissions for the output location",
			"Ensure the output directory exists and is writable",
		},
		domain.ErrorCategoryProcessing: {
			"Run with --verbose to see per-pair diagnostics",
			"Check that the assemblies are valid FASTA files",
		},
		domain.ErrorCategoryUnknown: {
			"Run with --verbose for detailed error information",
			"Report the issue if it persists",
		},
	}

	if sug, ok := suggestions[category]; ok {
		return sug
	}
	return []string{"Check the error message for more details"}
}

// getCategoryMessage returns a user-friendly message for an error category
func (ec *ErrorCategorizerImpl) getCategoryMessage(category domain.ErrorCategory) string {
	messages := map[domain.ErrorCategory]string{
		domain.ErrorCategoryInput:      "Failed to read input assemblies or directories",
		domain.ErrorCategoryConfig:     "Configuration file or settings error",
		domain.ErrorCategoryStorage:    "Failed to store or read distances",
		domain.ErrorCategoryTimeout:    "Run cancelled or timed out",
		domain.ErrorCategoryOutput:     "Failed to generate or write output",
		domain.ErrorCategoryProcessing: "Error while comparing or clustering assemblies",
		domain.ErrorCategoryUnknown:    "An unexpected error occurred",
	}

	if msg, ok := messages[category]; ok {
		return msg
	}
	return "An error occurred"
}

// containsAnyPattern checks if a string contains any of the given patterns
func containsAnyPattern(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(str, pattern) {
			return true
		}
	}
	return false
}
