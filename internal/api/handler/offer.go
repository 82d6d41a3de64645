package handler

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/oss"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
	"github.com/qs3c/localdeals_server/internal/service"
)

type OfferHandler struct {
	offerService *service.OfferService
}

func NewOfferHandler(offerService *service.OfferService) *OfferHandler {
	return &OfferHandler{
		offerService: offerService,
	}
}

// Listing 公开优惠列表，读取失败时仍返回 200 和空集合
// GET /api/v1/offers?type=&category=&q=
func (h *OfferHandler) Listing(c *gin.Context) {
	var q dto.ListingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	response.Success(c, h.offerService.Listing(c.Request.Context(), &q))
}

// Create 商家发布优惠
// POST /api/v1/merchant/offers
func (h *OfferHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	offer, err := h.offerService.Create(c.Request.Context(), actor, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "offer submitted for review", offer)
}

// ListMine 商家自己的优惠
// GET /api/v1/merchant/offers
func (h *OfferHandler) ListMine(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	offers, total, err := h.offerService.ListMine(actor, q.Page, q.PageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, q.Page, q.PageSize, offers)
}

// Delete 商家删除优惠
// DELETE /api/v1/merchant/offers/:id
func (h *OfferHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.offerService.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "offer deleted", nil)
}

// UploadImage 上传优惠封面
// POST /api/v1/merchant/offers/:id/image
func (h *OfferHandler) UploadImage(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "please choose a file")
		return
	}
	if file.Size > maxUploadSize {
		response.ParamError(c, service.ErrImageTooLarge.Error())
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !oss.AllowedImageExt(ext) {
		response.ParamError(c, service.ErrUnsupportedImage.Error())
		return
	}

	f, err := file.Open()
	if err != nil {
		response.ServerError(c, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		response.ServerError(c, "failed to read file")
		return
	}

	imageURL, err := h.offerService.UploadImage(c.Request.Context(), actor, id, data, ext)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"image_url": imageURL})
}
