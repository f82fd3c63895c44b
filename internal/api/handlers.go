package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"comicbook/internal/export"
	"comicbook/internal/model"
	"comicbook/internal/service"
	"comicbook/internal/store"
	"comicbook/internal/web"
)

// generateForm 表单和JSON共用，numPanels 缺省时取默认值
type generateForm struct {
	Story     string `form:"story" json:"story" binding:"required"`
	NumPanels *int   `form:"numPanels" json:"numPanels" binding:"omitempty,min=1,max=25"`
}

func (f generateForm) request() model.GenerationRequest {
	n := model.DefaultPanelCount
	if f.NumPanels != nil {
		n = *f.NumPanels
	}
	return model.GenerationRequest{StoryText: f.Story, RequestedPanelCount: n}
}

// exportForm JSON 请求省略 panels 时导出全部分镜，显式的空列表会被拒绝
type exportForm struct {
	Panels []int `form:"panels" json:"panels"`
}

// wantsHTML 浏览器请求返回页面，其余返回JSON
func wantsHTML(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}

func (h *handler) index(c *gin.Context) {
	c.HTML(http.StatusOK, web.IndexTemplate, h.pages.NewPage())
}

// generate 处理生成请求
func (h *handler) generate(c *gin.Context) {
	var form generateForm
	if err := c.ShouldBind(&form); err != nil {
		h.respondGenerate(c, form, "", model.ErrFields(service.MsgValidation, bindErrorFields(err, form)))
		return
	}
	id, res := h.svc.Generate(c.Request.Context(), form.request())
	h.respondGenerate(c, form, id, res)
}

func (h *handler) respondGenerate(c *gin.Context, form generateForm, id string, res model.GenerationResult) {
	status := http.StatusCreated
	if f, ok := res.Failure(); ok {
		status = failureStatus(f.Kind)
	}

	if wantsHTML(c) {
		if res.IsOk() {
			c.Redirect(http.StatusSeeOther, "/comics/"+url.PathEscape(id))
			return
		}
		page := h.pages.NewPage()
		page.Story = form.Story
		if form.NumPanels != nil {
			page.NumPanels = *form.NumPanels
		}
		f, _ := res.Failure()
		page.Error = f.Message
		page.Fields = f.Fields
		c.HTML(status, web.IndexTemplate, page)
		return
	}

	if panels, ok := res.Panels(); ok {
		c.JSON(status, gin.H{"id": id, "panels": panels})
		return
	}
	c.JSON(status, res)
}

func failureStatus(kind model.FailureKind) int {
	switch kind {
	case model.FailureValidation:
		return http.StatusBadRequest
	case model.FailureNoPanels:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// bindErrorFields 把绑定错误映射到表单字段，并补充业务校验的结果
func bindErrorFields(err error, form generateForm) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	var numErr *strconv.NumError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			switch fe.Field() {
			case "Story":
				fields["story"] = model.MsgStoryTooShort
			case "NumPanels":
				fields["numPanels"] = model.MsgPanelCountRange
			}
		}
	case errors.As(err, &numErr):
		fields["numPanels"] = model.MsgPanelCountRange
	case errors.As(err, &typeErr):
		if typeErr.Field == "story" {
			fields["story"] = model.MsgStoryTooShort
		} else {
			fields["numPanels"] = model.MsgPanelCountRange
		}
	}

	var more model.ValidationErrors
	if errors.As(form.request().Validate(), &more) {
		for k, v := range more.ByField() {
			if _, ok := fields[k]; !ok {
				fields[k] = v
			}
		}
	}
	return fields
}

// show 展示已生成的漫画
func (h *handler) show(c *gin.Context) {
	comic, ok := h.lookup(c)
	if !ok {
		return
	}
	if wantsHTML(c) {
		c.HTML(http.StatusOK, web.IndexTemplate, h.comicPage(comic, ""))
		return
	}
	c.JSON(http.StatusOK, comic)
}

func (h *handler) comicPage(comic store.Comic, errMsg string) web.PageData {
	page := h.pages.NewPage()
	page.Story = comic.Story
	page.NumPanels = len(comic.Panels)
	page.ComicID = comic.ID
	page.Panels = comic.Panels
	page.Error = errMsg
	return page
}

// lookup 读取漫画，不存在时直接写入 404
func (h *handler) lookup(c *gin.Context) (store.Comic, bool) {
	comic, err := h.svc.Comic(c.Param("id"))
	if err != nil {
		if wantsHTML(c) {
			page := h.pages.NewPage()
			page.Error = service.MsgNotFound
			c.HTML(http.StatusNotFound, web.IndexTemplate, page)
		} else {
			c.JSON(http.StatusNotFound, gin.H{"error": service.MsgNotFound})
		}
		return store.Comic{}, false
	}
	return comic, true
}

func (h *handler) lookupPanel(c *gin.Context) (int, model.Panel, bool) {
	comic, ok := h.lookup(c)
	if !ok {
		return 0, model.Panel{}, false
	}
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 || i >= len(comic.Panels) {
		c.JSON(http.StatusNotFound, gin.H{"error": "panel not found"})
		return 0, model.Panel{}, false
	}
	return i, comic.Panels[i], true
}

// card 单个分镜卡片页面，导出截图使用同一模板
func (h *handler) card(c *gin.Context) {
	i, panel, ok := h.lookupPanel(c)
	if !ok {
		return
	}
	html, err := h.pages.RenderCard(i, panel)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render panel"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// image 下载分镜图片：远程地址重定向，data URL 直接输出
func (h *handler) image(c *gin.Context) {
	i, panel, ok := h.lookupPanel(c)
	if !ok {
		return
	}
	ref := panel.ImageReference
	if strings.HasPrefix(ref, "data:") {
		mime, data, err := decodeDataURL(ref)
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid panel image"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"panel-%d%s\"", i+1, extFor(mime)))
		c.Data(http.StatusOK, mime, data)
		return
	}
	if ref == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "panel has no image"})
		return
	}
	c.Redirect(http.StatusFound, ref)
}

// exportPDF 导出选中分镜为PDF附件
func (h *handler) exportPDF(c *gin.Context) {
	var form exportForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "panels must be a list of panel numbers"})
		return
	}

	sel := model.NewExportSelection(form.Panels...)
	if form.Panels == nil && c.ContentType() == gin.MIMEJSON {
		comic, ok := h.lookup(c)
		if !ok {
			return
		}
		sel = model.AllPanels(len(comic.Panels))
	}

	pdf, err := h.svc.Export(c.Request.Context(), c.Param("id"), sel)
	if err != nil {
		msg := service.MsgExport
		var xerr *service.ExportError
		if errors.As(err, &xerr) {
			msg = xerr.Message
		}
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, export.ErrEmptySelection):
			status = http.StatusBadRequest
		case errors.Is(err, store.ErrNotFound):
			status = http.StatusNotFound
		}
		c.Error(err)

		if wantsHTML(c) {
			comic, lerr := h.svc.Comic(c.Param("id"))
			page := h.pages.NewPage()
			if lerr == nil {
				page = h.comicPage(comic, "")
			}
			page.Error = msg
			c.HTML(status, web.IndexTemplate, page)
			return
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.fileName))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// decodeDataURL 解析 base64 编码的 data URL
func decodeDataURL(ref string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return "", nil, errors.New("malformed data url")
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, errors.New("data url is not base64")
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return mime, data, nil
}

func extFor(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
