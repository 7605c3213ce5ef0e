// llm_breadcrumb.go converts llm request/response values into breadcrumbs.

package agentssdk

import (
	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"
)

func newLLMBreadcrumb(req llmsdk.Request) *LLMBreadcrumb {
	crumb := &LLMBreadcrumb{
		Model:        req.Model,
		Provider:     string(req.Provider),
		MessageCount: len(req.Messages),
	}
	for _, tool := range req.Tools {
		crumb.ToolNames = append(crumb.ToolNames, tool.Name)
	}
	return crumb
}

func (c *LLMBreadcrumb) applyResponse(resp llmsdk.Response) {
	if c == nil {
		return
	}
	c.FinishReason = string(resp.FinishReason)
	c.TotalTokens = resp.Usage.TotalTokens
	for _, tc := range resp.ToolCalls {
		c.ToolCallNames = append(c.ToolCallNames, tc.Name)
	}
}
