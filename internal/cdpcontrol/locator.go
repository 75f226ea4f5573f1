package cdpcontrol

// Locator strategies understood by both DOM drivers.
const (
	ByID    = "id"
	ByXPath = "xpath"
	ByCSS   = "css"
)

// Locator addresses one or more elements of the page.
type Locator struct {
	By    string `json:"by"`
	Value string `json:"value"`
}

func ID(id string) Locator { return Locator{By: ByID, Value: id} }
func XPath(expr string) Locator { return Locator{By: ByXPath, Value: expr} }
func CSS(selector string) Locator { return Locator{By: ByCSS, Value: selector} }

func (l Locator) String() string {
	return l.By + "=" + l.Value
}

func (l Locator) valid() bool {
	if l.Value == "" {
		return false
	}
	switch l.By {
	case ByID, ByXPath, ByCSS:
		return true
	}
	return false
}
