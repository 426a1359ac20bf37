package activity

import "strings"

// adfText extracts plain text from an Atlassian Document Format body by
// recursive descent over the node tree. Unknown node shapes contribute
// whatever text their children carry; nothing here can fail.
func adfText(node any) string {
    var b strings.Builder
    walkADF(node, &b)
    return strings.TrimSpace(b.String())
}

func walkADF(node any, b *strings.Builder) {
    m, ok := node.(map[string]any)
    if !ok { return }
    if t, ok := m["text"].(string); ok && t != "" {
        b.WriteString(t)
    }
    nodeType, _ := m["type"].(string)
    if nodeType == "hardBreak" {
        b.WriteString("\n")
    }
    content, ok := m["content"].([]any)
    if !ok { return }
    for i, child := range content {
        if nodeType == "doc" && i > 0 { b.WriteString("\n") }
        walkADF(child, b)
    }
}
