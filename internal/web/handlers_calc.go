package web

import (
	"net/http"

	"github.com/codefionn/mealcalc/internal/calc"
	"github.com/codefionn/mealcalc/internal/consts"
	"github.com/julienschmidt/httprouter"
)

type calculateRequest struct {
	Formula string `json:"formula"`
	// Spoken translates operator words ("plus", "умножить на") first.
	Spoken bool `json:"spoken,omitempty"`
	// Keys are keypad presses applied to Formula instead of evaluating it.
	Keys []string `json:"keys,omitempty"`
}

type calculateResponse struct {
	Formula string   `json:"formula"`
	Result  *float64 `json:"result,omitempty"`
	Display string   `json:"display,omitempty"`
	Error   string   `json:"error,omitempty"`
	Kind    string   `json:"kind,omitempty"`
}

// handleCalculate evaluates a formula, or replays keypad presses on it the
// way the calculator screen does.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req calculateRequest
	if err := decodeJSON(w, r, consts.MaxJSONBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Formula) > consts.MaxFormulaLength {
		writeError(w, http.StatusBadRequest, "formula is too long")
		return
	}

	formula := req.Formula
	if req.Spoken {
		formula = calc.TranslateSpoken(formula)
	}

	if len(req.Keys) > 0 {
		s.pressKeys(w, formula, req.Keys)
		return
	}

	value, err := calc.Evaluate(formula)
	if err != nil {
		writeCalcError(w, formula, err)
		return
	}
	writeJSON(w, http.StatusOK, calculateResponse{
		Formula: formula,
		Result:  &value,
		Display: calc.FormatResult(value),
	})
}

func (s *Server) pressKeys(w http.ResponseWriter, formula string, keys []string) {
	f := calc.NewFormula(formula)
	resp := calculateResponse{}
	for _, key := range keys {
		if key == "=" {
			value, err := f.Evaluate()
			if err != nil {
				writeCalcError(w, f.String(), err)
				return
			}
			resp.Result = &value
			continue
		}
		_ = f.Press(key) // only "=" can fail
		resp.Result = nil
	}
	resp.Formula = f.String()
	resp.Display = f.String()
	writeJSON(w, http.StatusOK, resp)
}

func writeCalcError(w http.ResponseWriter, formula string, err error) {
	resp := calculateResponse{Formula: formula, Error: err.Error()}
	if kind, ok := calc.KindOf(err); ok {
		resp.Kind = kind.String()
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}
