package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// Error codes referenced from other packages.
const (
	// CodeMalformedIdentifier is decode failure on a flat scope id.
	CodeMalformedIdentifier = "E201"

	// CodeUnregisteredScope is a virtual module request for a scope the
	// registry never saw.
	CodeUnregisteredScope = "E202"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E199)
	// ============================================

	"E101": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No vanilla-extract.json was found in the current directory or any parent directory.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E101",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "vanilla-extract.json exists but could not be parsed as JSON.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E102",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid identifier option",
		Detail:   "The identifiers option must be either \"short\" or \"debug\".",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E103",
	},

	// ============================================
	// Resolve Errors (E200-E299)
	// ============================================

	"E201": {
		Category: CategoryResolve,
		Message:  "Malformed scope identifier",
		Detail:   "A flat scope id could not be decoded back into a file scope. This indicates id-format corruption between compiled output and served requests.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E201",
	},
	"E202": {
		Category: CategoryResolve,
		Message:  "Virtual module not registered",
		Detail:   "A virtual CSS module was requested for a scope that was never compiled. The bundler asked for a module the pipeline never produced, e.g. from a stale cache.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E202",
	},

	// ============================================
	// Compile Errors (E300-E399)
	// ============================================

	"E301": {
		Category: CategoryCompile,
		Message:  "Style compilation failed",
		Detail:   "The style compiler reported an error for this source file.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E301",
	},
	"E302": {
		Category: CategoryTransform,
		Message:  "Style finalization failed",
		Detail:   "The compiled style output could not be finalized into importable JS.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E302",
	},
	"E303": {
		Category: CategoryCompile,
		Message:  "Package metadata not found",
		Detail:   "No package.json was found above the style source file. File scopes are tagged with the owning package name.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E303",
	},

	// ============================================
	// Build Errors (E400-E499)
	// ============================================

	"E401": {
		Category: CategoryBuild,
		Message:  "Build output write failed",
		Detail:   "An output file could not be written to the build directory.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E401",
	},
	"E402": {
		Category: CategoryBuild,
		Message:  "Bundle failed",
		Detail:   "esbuild reported errors while bundling the generated modules.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E402",
	},

	// ============================================
	// Deploy Errors (E500-E599)
	// ============================================

	"E501": {
		Category: CategoryDeploy,
		Message:  "Upload failed",
		Detail:   "One or more build artifacts could not be uploaded to the configured bucket.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E501",
	},
	"E502": {
		Category: CategoryDeploy,
		Message:  "AWS configuration failed",
		Detail:   "The AWS SDK could not load credentials or region configuration.",
		DocURL:   "https://vanilla-extract.style/documentation/errors/E502",
	},
}

// Lookup returns the template for a code, if registered.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
