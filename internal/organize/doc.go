// Package organize implements the final pipeline stage: verifying the
// project's artifacts, marking it completed in the registry, and removing
// scratch data.
package organize
