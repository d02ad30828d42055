package service

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"
	"go-brokerage-crm/internal/storage"

	"github.com/google/uuid"
)

var ErrFileTooLarge = errors.New("file exceeds upload limit")

type UploadDocumentRequest struct {
	ClientID    uuid.UUID `validate:"uuid_required"`
	FileName    string    `validate:"required,max=255"`
	ContentType string
	Category    string `validate:"omitempty,oneof=KYC AGREEMENT STATEMENT OTHER"`
}

type DocumentService interface {
	Upload(actor model.Identity, req *UploadDocumentRequest, r io.Reader) (*model.Document, error)
	List(clientID *uuid.UUID, category string) ([]model.Document, error)
	Open(id uuid.UUID) (*model.Document, io.ReadCloser, error)
}

type documentService struct {
	docRepo    repository.DocumentRepository
	clientRepo repository.ClientRepository
	blobs      storage.Blobs
	maxBytes   int64
}

func NewDocumentService(docRepo repository.DocumentRepository, clientRepo repository.ClientRepository, blobs storage.Blobs, maxBytes int64) DocumentService {
	return &documentService{docRepo: docRepo, clientRepo: clientRepo, blobs: blobs, maxBytes: maxBytes}
}

func (s *documentService) Upload(actor model.Identity, req *UploadDocumentRequest, r io.Reader) (*model.Document, error) {
	req.FileName = filepath.Base(strings.TrimSpace(req.FileName))
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.clientRepo.FindByID(req.ClientID); err != nil {
		return nil, notFound(err)
	}

	key, size, err := s.blobs.Put(r, s.maxBytes)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, ErrFileTooLarge
	}
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	doc := &model.Document{
		ClientID:     req.ClientID,
		UploadedByID: actor.ID,
		FileName:     req.FileName,
		StorageKey:   key,
		ContentType:  req.ContentType,
		Size:         size,
		Category:     req.Category,
	}
	if doc.Category == "" {
		doc.Category = "OTHER"
	}
	if doc.ContentType == "" {
		doc.ContentType = "application/octet-stream"
	}
	doc.CreatedBy = actorID(actor.ID)
	doc.UpdatedBy = actorID(actor.ID)
	if err := s.docRepo.Create(doc); err != nil {
		if derr := s.blobs.Delete(key); derr != nil {
			log.Printf("document orphan blob key=%s: %v", key, derr)
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) List(clientID *uuid.UUID, category string) ([]model.Document, error) {
	var docs []model.Document
	var err error
	if clientID != nil {
		docs, err = s.docRepo.FindByClient(*clientID)
	} else {
		docs, err = s.docRepo.FindAll(strings.ToUpper(category))
	}
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return docs, nil
}

func (s *documentService) Open(id uuid.UUID) (*model.Document, io.ReadCloser, error) {
	doc, err := s.docRepo.FindByID(id)
	if err != nil {
		return nil, nil, notFound(err)
	}
	rc, err := s.blobs.Open(doc.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}
