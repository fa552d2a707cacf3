package service

import (
	"context"
	"time"

	"corevai-be/internal/dto"
	"corevai-be/internal/entity"
	"corevai-be/internal/repository/specification"
	"corevai-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IProjectService interface {
	List(ctx context.Context, userId uuid.UUID) ([]dto.ProjectDTO, error)
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateProjectRequest) (*dto.ProjectDTO, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateProjectRequest) (*dto.ProjectDTO, error)
	Delete(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) error
	Conversations(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) ([]dto.ConversationDTO, error)
}

type projectService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewProjectService(uowFactory unitofwork.RepositoryFactory) IProjectService {
	return &projectService{
		uowFactory: uowFactory,
	}
}

func projectDTO(p *entity.Project) dto.ProjectDTO {
	return dto.ProjectDTO{
		Id:        p.Id,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
	}
}

func (s *projectService) ownedProject(ctx context.Context, uow unitofwork.UnitOfWork, userId, projectId uuid.UUID) (*entity.Project, error) {
	project, err := uow.ProjectRepository().FindOne(ctx, specification.ByID{ID: projectId})
	if err != nil {
		return nil, err
	}
	if project == nil || project.OwnerId != userId {
		return nil, ErrNotFound
	}
	return project, nil
}

func (s *projectService) List(ctx context.Context, userId uuid.UUID) ([]dto.ProjectDTO, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	projects, err := uow.ProjectRepository().FindAll(ctx,
		specification.OwnedBy{OwnerID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]dto.ProjectDTO, len(projects))
	for i, p := range projects {
		result[i] = projectDTO(p)
	}
	return result, nil
}

func (s *projectService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateProjectRequest) (*dto.ProjectDTO, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	project := &entity.Project{
		Id:        uuid.New(),
		OwnerId:   userId,
		Name:      req.Name,
		CreatedAt: time.Now(),
	}
	if err := uow.ProjectRepository().Create(ctx, project); err != nil {
		return nil, err
	}

	result := projectDTO(project)
	return &result, nil
}

func (s *projectService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateProjectRequest) (*dto.ProjectDTO, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	project, err := s.ownedProject(ctx, uow, userId, req.Id)
	if err != nil {
		return nil, err
	}

	project.Name = req.Name
	if err := uow.ProjectRepository().Update(ctx, project); err != nil {
		return nil, err
	}

	result := projectDTO(project)
	return &result, nil
}

// Delete removes the project. Conversations inside it are detached, not
// deleted.
func (s *projectService) Delete(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedProject(ctx, uow, userId, projectId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	convs, err := uow.ConversationRepository().FindAll(ctx,
		specification.OwnedBy{OwnerID: userId},
		specification.ByProjectID{ProjectID: projectId},
	)
	if err != nil {
		return err
	}
	for _, c := range convs {
		c.ProjectId = nil
		if err := uow.ConversationRepository().Update(ctx, c); err != nil {
			return err
		}
	}

	if err := uow.ProjectRepository().Delete(ctx, projectId); err != nil {
		return err
	}

	return uow.Commit()
}

func (s *projectService) Conversations(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) ([]dto.ConversationDTO, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedProject(ctx, uow, userId, projectId); err != nil {
		return nil, err
	}

	convs, err := uow.ConversationRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]dto.ConversationDTO, len(convs))
	for i, c := range convs {
		result[i] = conversationDTO(c)
	}
	return result, nil
}
