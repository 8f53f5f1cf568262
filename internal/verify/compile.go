package verify

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

// runCompile parses and lowers the code as classic-runtime JSX. Any compile
// error fails verification with the first error's message and position.
func runCompile(code string) Result {
	result := api.Transform(code, api.TransformOptions{
		Loader:      api.LoaderJSX,
		JSXFactory:  "React.createElement",
		JSXFragment: "React.Fragment",
		Target:      api.ES2020,
		Sourcefile:  "generated-app.jsx",
	})

	if len(result.Errors) > 0 {
		first := result.Errors[0]
		if first.Location != nil {
			return Result{
				Valid: false,
				Diagnostic: fmt.Sprintf("compile error: %s at line %d, column %d",
					first.Text, first.Location.Line, first.Location.Column+1),
			}
		}
		return Result{
			Valid:      false,
			Diagnostic: fmt.Sprintf("compile error: %s", first.Text),
		}
	}

	return Result{Valid: true}
}
